// Package dirty tracks which parts of the heap the allocator has written.
//
// The tracker keeps a list of raw byte ranges and coalesces them into
// page-aligned, sorted, non-overlapping ranges on demand. Diagnostics use it
// to report how many heap pages a workload touched with header writes.
package dirty

import (
	"sort"

	"github.com/joshuapare/kheap/internal/format"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64
)

// Range represents a dirty byte range (virtual addresses).
type Range struct {
	Addr uintptr // Start address
	Len  uintptr // Length in bytes
}

// End returns the first address past r.
func (r Range) End() uintptr {
	return r.Addr + r.Len
}

// Tracker accumulates dirty ranges.
//
// NOT thread-safe. The façade lock serializes the allocator calls that feed it.
type Tracker struct {
	ranges   []Range // Dirty ranges (coalesced on demand)
	writes   int     // Total Add calls since the last Reset
	pageSize uintptr
}

// NewTracker creates a dirty tracker with page-sized granularity.
func NewTracker() *Tracker {
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: format.PageSize,
	}
}

// Add records a dirty range.
//
// The range will be page-aligned and coalesced with other ranges when read.
func (t *Tracker) Add(addr uintptr, length int) {
	if length <= 0 {
		return
	}
	t.writes++
	t.ranges = append(t.ranges, Range{Addr: addr, Len: uintptr(length)})

	// Keep memory bounded under long workloads.
	if len(t.ranges) >= 4*defaultRangeCapacity {
		t.ranges = append(t.ranges[:0], t.coalesce()...)
	}
}

// Writes returns the number of Add calls since the last Reset.
func (t *Tracker) Writes() int {
	return t.writes
}

// Coalesced returns page-aligned, sorted, merged ranges.
func (t *Tracker) Coalesced() []Range {
	return t.coalesce()
}

// Pages returns the number of distinct pages touched.
func (t *Tracker) Pages() int {
	var n int
	for _, r := range t.coalesce() {
		n += int(r.Len / t.pageSize)
	}
	return n
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
	t.writes = 0
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
//
// Returns a new slice of non-overlapping, sorted ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	// Page-align all ranges
	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := format.AlignDown(r.Addr, t.pageSize)
		end := format.AlignUp(r.End(), t.pageSize)
		aligned[i] = Range{Addr: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Addr < aligned[j].Addr
	})

	// Merge overlapping/adjacent ranges
	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for i := 1; i < len(aligned); i++ {
		next := aligned[i]
		if next.Addr <= current.End() {
			current.Len = max(current.End(), next.End()) - current.Addr
		} else {
			merged = append(merged, current)
			current = next
		}
	}

	return append(merged, current)
}
