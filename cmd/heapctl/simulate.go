package main

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/heap/kheap"
	"github.com/joshuapare/kheap/heap/verify"
	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/internal/humanize"
)

var (
	simOps         int
	simSeed        int64
	simMaxSize     uint64
	simMaxAlign    uint64
	simVerifyEvery int
)

func init() {
	cmd := newSimulateCmd()
	addHeapFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Boot the heap and run a random request/release workload",
		Long: `The simulate command boots the heap like 'heapctl boot' and then drives a
seeded random mix of requests and releases against it. The free list is
checked after every operation: regions must be ordered, aligned, disjoint and
never adjacent, and together with the outstanding blocks must cover the heap
exactly. At the end every block is released and the heap must be one region
again.

Example:
  heapctl simulate --ops 50000 --seed 7
  heapctl simulate --max-size 65536 --max-align 4096 --skip-selftest
  heapctl simulate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(args)
		},
	}
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of request/release operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().Uint64Var(&simMaxSize, "max-size", 4096, "Largest request size in bytes")
	cmd.Flags().Uint64Var(&simMaxAlign, "max-align", 64, "Largest request alignment (power of two)")
	cmd.Flags().IntVar(&simVerifyEvery, "verify-every", 1, "Check heap invariants every N operations (0 disables)")
	return cmd
}

type block struct {
	addr, size, align uintptr
}

type simReport struct {
	Ops           int         `json:"ops"`
	Seed          int64       `json:"seed"`
	Requests      int         `json:"requests"`
	Releases      int         `json:"releases"`
	Failed        int         `json:"failed"`
	Checks        int         `json:"checks"`
	PeakBlocks    int         `json:"peak_blocks"`
	PeakBytes     uintptr     `json:"peak_bytes"`
	FinalRegions  int         `json:"final_regions"`
	FinalFree     uintptr     `json:"final_free"`
	DirtyWrites   int         `json:"dirty_writes"`
	DirtyPages    int         `json:"dirty_pages"`
	AllocatorStat alloc.Stats `json:"allocator"`
}

// workload drives random requests and releases against a heap while keeping
// track of what is outstanding.
type workload struct {
	h    *kheap.Heap
	rng  *rand.Rand
	live []block
	in   map[uintptr]uintptr // addr -> normalized size, for verify.Accounting
	used uintptr

	report simReport
}

func newWorkload(h *kheap.Heap, seed int64) *workload {
	return &workload{
		h:   h,
		rng: rand.New(rand.NewSource(seed)),
		in:  make(map[uintptr]uintptr),
	}
}

func (w *workload) request(maxSize, maxAlign uintptr) error {
	w.report.Requests++
	size := uintptr(w.rng.Int63n(int64(maxSize))) + 1
	align := uintptr(1) << w.rng.Intn(alignShift(maxAlign)+1)

	addr, err := w.h.Request(size, align)
	if errors.Is(err, alloc.ErrNoSpace) {
		w.report.Failed++
		return nil
	}
	if err != nil {
		return err
	}

	norm, _ := alloc.Normalize(size, align)
	w.live = append(w.live, block{addr: addr, size: size, align: align})
	w.in[addr] = norm
	w.used += norm

	w.report.PeakBlocks = max(w.report.PeakBlocks, len(w.live))
	w.report.PeakBytes = max(w.report.PeakBytes, w.used)
	return nil
}

func (w *workload) release(i int) error {
	w.report.Releases++
	b := w.live[i]
	if err := w.h.Release(b.addr, b.size, b.align); err != nil {
		return fmt.Errorf("release %#x (+%d, align %d): %w", b.addr, b.size, b.align, err)
	}
	w.used -= w.in[b.addr]
	delete(w.in, b.addr)
	w.live[i] = w.live[len(w.live)-1]
	w.live = w.live[:len(w.live)-1]
	return nil
}

func (w *workload) check(op int) error {
	w.report.Checks++
	if err := verify.AllInvariants(w.h.Snapshot(), w.in); err != nil {
		return fmt.Errorf("after operation %d: %w", op, err)
	}
	return nil
}

// run performs ops random operations, checking every verifyEvery of them.
func (w *workload) run(ops int, maxSize, maxAlign uintptr, verifyEvery int) error {
	for op := 1; op <= ops; op++ {
		var err error
		if len(w.live) == 0 || w.rng.Intn(100) < 55 {
			err = w.request(maxSize, maxAlign)
		} else {
			err = w.release(w.rng.Intn(len(w.live)))
		}
		if err != nil {
			return fmt.Errorf("operation %d: %w", op, err)
		}
		if verifyEvery > 0 && op%verifyEvery == 0 {
			if err := w.check(op); err != nil {
				return err
			}
		}
	}
	w.report.Ops = ops
	return nil
}

// drain releases every outstanding block and checks the heap is whole again.
func (w *workload) drain() error {
	for len(w.live) > 0 {
		if err := w.release(len(w.live) - 1); err != nil {
			return err
		}
	}
	if err := w.check(w.report.Ops); err != nil {
		return err
	}

	regions := w.h.Regions()
	w.report.FinalRegions = len(regions)
	w.report.FinalFree = w.h.FreeBytes()
	start, end := w.h.Bounds()
	if len(regions) != 1 || regions[0].Start != start || regions[0].Size != end-start {
		return fmt.Errorf("heap did not reassemble: %d free regions, %s free",
			len(regions), humanize.Bytes(w.report.FinalFree))
	}
	return nil
}

func alignShift(a uintptr) int {
	n := 0
	for a > 1 {
		a >>= 1
		n++
	}
	return n
}

func runSimulate(args []string) error {
	if simOps < 0 {
		return fmt.Errorf("--ops must not be negative, got %d", simOps)
	}
	if simMaxSize == 0 {
		return fmt.Errorf("--max-size must be positive")
	}
	if !format.IsPowerOfTwo(uintptr(simMaxAlign)) {
		return fmt.Errorf("--max-align must be a power of two, got %d", simMaxAlign)
	}

	m, h, _, err := bootMachine()
	if err != nil {
		return err
	}
	defer m.Close()

	// Count only the workload's header writes.
	m.Dirty.Reset()

	printInfo("\nRunning %s operations (seed %d)\n", humanize.Count(simOps), simSeed)
	w := newWorkload(h, simSeed)
	w.report.Seed = simSeed
	if err := w.run(simOps, uintptr(simMaxSize), uintptr(simMaxAlign), simVerifyEvery); err != nil {
		return err
	}
	if err := w.drain(); err != nil {
		return err
	}

	w.report.DirtyWrites = m.Dirty.Writes()
	w.report.DirtyPages = m.Dirty.Pages()
	w.report.AllocatorStat = h.Stats()

	if jsonOut {
		return printJSON(w.report)
	}
	printInfo("\n")
	printSimSummary(w.report)
	return nil
}

func printSimSummary(r simReport) {
	printHeader("Workload")
	printField("operations", fmt.Sprintf("%s requests, %s releases", humanize.Count(r.Requests), humanize.Count(r.Releases)))
	printField("failed", humanize.Count(r.Failed))
	printField("peak", fmt.Sprintf("%s blocks, %s", humanize.Count(r.PeakBlocks), humanize.Bytes(r.PeakBytes)))
	printField("checks", humanize.Count(r.Checks)+" passed")

	s := r.AllocatorStat
	printHeader("Allocator")
	printField("splits", humanize.Count(s.SplitCount))
	printField("rejected", humanize.Count(s.RejectedRegions)+" regions")
	printField("coalesced", fmt.Sprintf("%s forward, %s backward", humanize.Count(s.CoalesceForward), humanize.Count(s.CoalesceBackward)))
	printField("dirty", fmt.Sprintf("%s header writes over %s pages", humanize.Count(r.DirtyWrites), humanize.Count(r.DirtyPages)))
	printField("final", fmt.Sprintf("%s region, %s free", humanize.Count(r.FinalRegions), humanize.Bytes(r.FinalFree)))
}
