// Package humanize formats heap quantities for operator output.
package humanize

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Count renders n with thousands separators: 14000 -> "14,000".
func Count[T ~int | ~int64 | ~uint64 | ~uintptr](n T) string {
	return printer.Sprintf("%d", n)
}

// Bytes renders n as an exact byte count plus a binary-unit approximation:
// 4194304 -> "4,194,304 B (4.0 MiB)". Counts below 1 KiB have no suffix.
func Bytes[T ~int | ~int64 | ~uint64 | ~uintptr](n T) string {
	v := uint64(n)
	exact := printer.Sprintf("%d B", v)
	if v < 1<<10 {
		return exact
	}

	units := []string{"KiB", "MiB", "GiB", "TiB"}
	f := float64(v) / 1024
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return fmt.Sprintf("%s (%.1f %s)", exact, f, units[i])
}

// Addr renders an address as fixed-width hex with a separator between the
// 16-bit groups: 0x444444440000 -> "0x0000_4444_4444_0000".
func Addr(a uintptr) string {
	s := fmt.Sprintf("%016x", uint64(a))
	return "0x" + s[0:4] + "_" + s[4:8] + "_" + s[8:12] + "_" + s[12:16]
}
