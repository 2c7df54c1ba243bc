package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	skippedStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	failedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)
)

// render applies style unless color is disabled.
func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// printHeader prints a section title.
func printHeader(title string) {
	printInfo("%s\n", render(headerStyle, title))
}

// printField prints one aligned "label value" line.
func printField(label, value string) {
	if noColor {
		printInfo("  %-14s%s\n", label+":", value)
		return
	}
	printInfo("  %s%s\n", labelStyle.Render(label+":"), value)
}

// consoleWriter colors the status markers in bring-up diagnostics.
type consoleWriter struct {
	w io.Writer
}

var statusMarkers = []struct {
	marker string
	style  *lipgloss.Style
}{
	{"[ok]", &okStyle},
	{"[skipped]", &skippedStyle},
	{"[failed]", &failedStyle},
}

func (c consoleWriter) Write(p []byte) (int, error) {
	s := string(p)
	for _, m := range statusMarkers {
		s = strings.ReplaceAll(s, m.marker, render(*m.style, m.marker))
	}
	if _, err := io.WriteString(c.w, s); err != nil {
		return 0, err
	}
	return len(p), nil
}
