package main

import (
	"fmt"
	rdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// Set by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const heapModule = "github.com/joshuapare/kheap"

// buildVersion prefers the linker-set version, then the module version
// recorded by `go install`.
func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := rdebug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

// heapVersion reports the kheap module the binary was built against.
func heapVersion() string {
	info, ok := rdebug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != heapModule {
			continue
		}
		if dep.Replace != nil {
			return dep.Version + " => " + dep.Replace.Path
		}
		return dep.Version
	}
	return "unknown"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heapctl %s\n", buildVersion())
		fmt.Printf("  heap:   %s\n", heapVersion())
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.Version = buildVersion()
	rootCmd.AddCommand(versionCmd)
}
