package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/heap/boot"
	"github.com/joshuapare/kheap/heap/kheap"
	"github.com/joshuapare/kheap/heap/selftest"
	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/internal/humanize"
)

// heapFlags are the machine and bring-up options shared by boot and simulate.
type heapFlags struct {
	heapStart    uint64
	heapSize     uint64
	physSize     uint64
	chunk        uint64
	count        int
	skipSelfTest bool
}

var heapOpts heapFlags

func addHeapFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&heapOpts.heapStart, "heap-start", format.DefaultHeapStart, "Virtual address of the heap (accepts 0x...)")
	cmd.Flags().Uint64Var(&heapOpts.heapSize, "heap-size", format.DefaultHeapSize, "Heap size in bytes")
	cmd.Flags().Uint64Var(&heapOpts.physSize, "phys-size", format.DefaultPhysSize, "Simulated physical memory in bytes")
	cmd.Flags().Uint64Var(&heapOpts.chunk, "chunk", format.DefaultChunkSize, "Self-test chunk size in bytes (0 uses the default)")
	cmd.Flags().IntVar(&heapOpts.count, "count", format.DefaultChunkCount, "Self-test chunk count (0 uses the default)")
	cmd.Flags().BoolVar(&heapOpts.skipSelfTest, "skip-selftest", false, "Skip the coalescence self-test")
}

func init() {
	cmd := newBootCmd()
	addHeapFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func newBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Bring the heap up and report on it",
		Long: `The boot command runs heap bring-up on a fresh simulated machine:
it computes the page range covering the heap, maps every page to a new frame,
initializes the allocator and runs the coalescence self-test.

Example:
  heapctl boot
  heapctl boot --heap-size 1048576 --count 2000
  heapctl boot --phys-size 2097152     # too little memory: mapping fails
  heapctl boot --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(args)
		},
	}
	return cmd
}

// bootConfig turns the shared flags into a boot.Config.
func bootConfig() boot.Config {
	cfg := boot.DefaultConfig()
	cfg.HeapStart = uintptr(heapOpts.heapStart)
	cfg.HeapSize = uintptr(heapOpts.heapSize)
	cfg.PhysSize = heapOpts.physSize
	cfg.SelfTest = selftest.Options{ChunkSize: uintptr(heapOpts.chunk), ChunkCount: heapOpts.count}
	cfg.SkipSelfTest = heapOpts.skipSelfTest
	if !quiet && !jsonOut {
		cfg.Console = consoleWriter{w: os.Stdout}
	}
	return cfg
}

// bootMachine runs bring-up with the shared flags and installs the heap.
func bootMachine() (*boot.Machine, *kheap.Heap, *boot.Report, error) {
	cfg := bootConfig()
	printVerbose("Booting heap at %s (%s) on %s of physical memory\n",
		humanize.Addr(cfg.HeapStart), humanize.Bytes(cfg.HeapSize), humanize.Bytes(cfg.PhysSize))
	printInfo("Initializing heap\n")

	m, h, report, err := boot.Boot(cfg)
	if err != nil {
		return nil, nil, report, err
	}

	// A second boot in the same process (tests) keeps the first heap installed.
	if err := kheap.Install(h); err != nil {
		printVerbose("Heap not installed: %v\n", err)
	}
	return m, h, report, nil
}

type bootSummary struct {
	*boot.Report
	FramesIssued    uint64 `json:"frames_issued"`
	FramesRemaining uint64 `json:"frames_remaining"`
	TableFrames     int    `json:"table_frames"`
	Error           string `json:"error,omitempty"`
}

func runBoot(args []string) error {
	m, _, report, err := bootMachine()
	summary := bootSummary{Report: report}
	if m != nil {
		defer m.Close()
		summary.FramesIssued = m.Frames.Issued()
		summary.FramesRemaining = m.Frames.Remaining()
		summary.TableFrames = m.Table.TableFrames()
	}
	if err != nil {
		summary.Error = err.Error()
	}

	if jsonOut {
		if jerr := printJSON(summary); jerr != nil {
			return jerr
		}
		return err
	}
	if err != nil {
		return err
	}

	printInfo("\n")
	printHeapSummary(summary)
	return nil
}

func printHeapSummary(s bootSummary) {
	printHeader("Heap")
	printField("range", fmt.Sprintf("%s - %s", humanize.Addr(s.HeapStart), humanize.Addr(s.HeapEnd)))
	printField("size", humanize.Bytes(s.HeapEnd-s.HeapStart))
	printField("pages", fmt.Sprintf("%s mapped (%s - %s)",
		humanize.Count(s.PagesMapped), humanize.Addr(s.FirstPage), humanize.Addr(s.LastPage)))
	printField("frames", fmt.Sprintf("%s issued, %s table, %s remaining",
		humanize.Count(s.FramesIssued), humanize.Count(s.TableFrames), humanize.Count(s.FramesRemaining)))
	printField("free", humanize.Bytes(s.FreeBytes))

	if s.SelfTest != nil {
		printHeader("Self-test")
		printField("chunks", fmt.Sprintf("%s x %s", humanize.Count(s.SelfTest.ChunkCount), humanize.Bytes(s.SelfTest.ChunkSize)))
		printField("reassembled", fmt.Sprintf("%s at %s", humanize.Bytes(s.SelfTest.Total), humanize.Addr(s.SelfTest.Addr)))
	}
}
