package verify

import (
	"fmt"
	"sort"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/format"
)

// Heap is the read-only allocator surface the validators inspect.
// *alloc.Allocator satisfies it.
type Heap interface {
	Bounds() (start, end uintptr)
	Walk(fn func(h alloc.Header) bool)
}

// ValidationError describes one violated invariant.
type ValidationError struct {
	Type    string
	Message string
	Addr    uintptr // Address the violation was found at (0 if N/A)
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("%s at %#x: %s", e.Type, e.Addr, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates the free list and the accounting in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(h Heap, outstanding map[uintptr]uintptr) error {
	if err := FreeList(h); err != nil {
		return err
	}
	return Accounting(h, outstanding)
}

// FreeList checks the structural invariants of the free list: bounds,
// alignment, minimum size, strict ordering, no overlap and no adjacency.
func FreeList(h Heap) error {
	start, end := h.Bounds()

	var err error
	var prev alloc.Header
	first := true
	h.Walk(func(hdr alloc.Header) bool {
		err = checkRegion(hdr, start, end)
		if err == nil && !first {
			err = checkNeighbors(prev, hdr)
		}
		prev = hdr
		first = false
		return err == nil
	})
	if err != nil {
		return err
	}

	// The last header must terminate the list.
	if !first && prev.Next != format.NoRegion {
		return &ValidationError{
			Type:    "Bounds",
			Message: fmt.Sprintf("list does not terminate: next %#x", prev.Next),
			Addr:    prev.Addr,
		}
	}
	return nil
}

func checkRegion(hdr alloc.Header, start, end uintptr) error {
	if hdr.Addr < start || hdr.Addr >= end {
		return &ValidationError{
			Type:    "Bounds",
			Message: fmt.Sprintf("region outside heap [%#x, %#x)", start, end),
			Addr:    hdr.Addr,
		}
	}
	if !format.IsAligned(hdr.Addr, format.HeaderAlign) {
		return &ValidationError{
			Type:    "Alignment",
			Message: fmt.Sprintf("region not %d-byte aligned", format.HeaderAlign),
			Addr:    hdr.Addr,
		}
	}
	if hdr.Size < format.HeaderSize {
		return &ValidationError{
			Type:    "RegionSize",
			Message: fmt.Sprintf("size %d smaller than a header (%d)", hdr.Size, format.HeaderSize),
			Addr:    hdr.Addr,
		}
	}
	if hdr.Size > end-hdr.Addr {
		return &ValidationError{
			Type:    "Bounds",
			Message: fmt.Sprintf("size %d runs past heap end %#x", hdr.Size, end),
			Addr:    hdr.Addr,
			Details: map[string]any{"size": hdr.Size, "end": end},
		}
	}
	if hdr.Next != format.NoRegion && (hdr.Next < start || hdr.Next >= end) {
		return &ValidationError{
			Type:    "Bounds",
			Message: fmt.Sprintf("next %#x points outside heap", hdr.Next),
			Addr:    hdr.Addr,
			Details: map[string]any{"next": hdr.Next},
		}
	}
	return nil
}

func checkNeighbors(prev, cur alloc.Header) error {
	prevEnd := prev.Addr + prev.Size
	switch {
	case cur.Addr <= prev.Addr:
		return &ValidationError{
			Type:    "Ordering",
			Message: fmt.Sprintf("region follows %#x but does not start above it", prev.Addr),
			Addr:    cur.Addr,
		}
	case cur.Addr < prevEnd:
		return &ValidationError{
			Type:    "Overlap",
			Message: fmt.Sprintf("region overlaps predecessor [%#x, %#x)", prev.Addr, prevEnd),
			Addr:    cur.Addr,
		}
	case cur.Addr == prevEnd:
		return &ValidationError{
			Type:    "Adjacency",
			Message: fmt.Sprintf("region touches predecessor at %#x without being merged", prev.Addr),
			Addr:    cur.Addr,
		}
	}
	return nil
}

type span struct {
	addr, size uintptr
	free       bool
}

// Accounting checks the no-loss property: free regions and outstanding
// blocks tile the heap exactly, with no byte counted twice.
func Accounting(h Heap, outstanding map[uintptr]uintptr) error {
	start, end := h.Bounds()

	spans := make([]span, 0, len(outstanding)+16)
	var free, used uintptr
	h.Walk(func(hdr alloc.Header) bool {
		spans = append(spans, span{addr: hdr.Addr, size: hdr.Size, free: true})
		free += hdr.Size
		return true
	})
	for addr, size := range outstanding {
		spans = append(spans, span{addr: addr, size: size})
		used += size
	}

	if free+used != end-start {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("free %d + outstanding %d != heap size %d", free, used, end-start),
			Details: map[string]any{"free": free, "outstanding": used, "heap": end - start},
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].addr < spans[j].addr })
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.addr < prev.addr+prev.size {
			return &ValidationError{
				Type:    "Overlap",
				Message: fmt.Sprintf("span overlaps [%#x, %#x)", prev.addr, prev.addr+prev.size),
				Addr:    cur.addr,
				Details: map[string]any{"free": cur.free, "prevFree": prev.free},
			}
		}
	}
	return nil
}
