package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/internal/logger"
)

// Runtime debug flag for allocation logging - controlled by KHEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("KHEAP_LOG_ALLOC") != ""

// Header is a raw view of one free-region header as stored in memory.
type Header struct {
	Addr uintptr // where the header lives (region start)
	Size uintptr // size word
	Next uintptr // next word, format.NoRegion terminates the list
}

// Allocator is a first-fit free-list allocator over a fixed heap range.
//
// The list head is a sentinel held here rather than in heap memory; a
// predecessor address of 0 always denotes it. This is why the heap may not
// start at address 0.
type Allocator struct {
	mem Memory
	dt  DirtyTracker

	head  uintptr // first free region, or format.NoRegion
	start uintptr
	end   uintptr
	ready bool

	stats Stats
}

// New creates an allocator that stores its headers through mem.
// dt may be nil, in which case header writes are not tracked.
func New(mem Memory, dt DirtyTracker) *Allocator {
	if mem == nil {
		panic("alloc: nil memory")
	}
	return &Allocator{mem: mem, dt: dt}
}

// Init installs [start, start+size) as a single free region.
//
// It must be called exactly once before any Alloc or Dealloc. The range must
// be fully backed by mem. Any violated requirement is a bring-up bug and
// panics.
func (a *Allocator) Init(start, size uintptr) {
	switch {
	case a.ready:
		panic("alloc: Init called twice")
	case start == 0:
		panic("alloc: heap may not start at address 0")
	case !format.IsAligned(start, format.HeaderAlign):
		panic(fmt.Sprintf("alloc: heap start %#x not %d-byte aligned", start, format.HeaderAlign))
	case size < format.HeaderSize:
		panic(fmt.Sprintf("alloc: heap size %d smaller than a header", size))
	case start+size < start:
		panic(fmt.Sprintf("alloc: heap [%#x, +%#x) wraps the address space", start, size))
	}

	a.start = start
	a.end = start + size
	a.ready = true

	a.writeHeader(start, size, format.NoRegion)
	a.head = start

	if logAlloc {
		logger.Debug("alloc: init", "start", fmt.Sprintf("%#x", start), "size", size)
	}
}

// Normalize widens a request so the granted block can later hold a free
// header. The returned alignment is at least format.HeaderAlign and the
// returned size is a multiple of it, no smaller than format.HeaderSize.
//
// A non-power-of-two alignment or a size that overflows when padded is a
// caller bug and panics.
func Normalize(size, align uintptr) (uintptr, uintptr) {
	if !format.IsPowerOfTwo(align) {
		panic(fmt.Sprintf("alloc: alignment %d is not a power of two", align))
	}
	align = max(align, format.HeaderAlign)

	padded, ok := format.AlignUpChecked(size, align)
	if !ok {
		panic(fmt.Sprintf("alloc: size %d overflows when aligned to %d", size, align))
	}
	return max(padded, format.HeaderSize), align
}

// Alloc returns the address of a block of at least size bytes aligned to
// align. It takes the first free region in address order that fits.
// Returns ErrNoSpace if no region can satisfy the request.
func (a *Allocator) Alloc(size, align uintptr) (uintptr, error) {
	a.mustReady()
	originalSize := size
	size, align = Normalize(size, align)
	a.stats.AllocCalls++

	prev := uintptr(format.NoRegion)
	for cur := a.head; cur != format.NoRegion; prev, cur = cur, a.next(cur) {
		regionSize := a.size(cur)
		addr, verdict := fit(cur, regionSize, size, align)
		if verdict == fitTooSmall {
			continue
		}
		if verdict == fitRejected {
			a.stats.RejectedRegions++
			continue
		}

		// Unlink first so the leftovers see the list as it will be.
		a.link(prev, a.next(cur))

		if pre := addr - cur; pre > 0 {
			a.insert(prev, cur, pre)
			a.stats.SplitCount++
		}
		if post := cur + regionSize - (addr + size); post > 0 {
			a.insert(prev, addr+size, post)
			a.stats.SplitCount++
		}

		a.stats.BytesAllocated += uint64(size)
		return addr, nil
	}

	a.stats.AllocFailed++
	if logAlloc {
		logger.Debug("alloc: no space",
			"requested", originalSize,
			"normalized", size,
			"align", align,
			"largest", a.LargestFree(),
			"free", a.FreeBytes())
	}
	return 0, ErrNoSpace
}

// Dealloc returns the block at addr to the free list and merges it with any
// touching neighbors. size and align must be those the block was requested
// with.
//
// Releases that fall outside the heap or are misaligned return ErrBadRelease,
// and releases overlapping free space return ErrOverlap. The list is left
// untouched in both cases. Other contract violations go undetected.
func (a *Allocator) Dealloc(addr, size, align uintptr) error {
	a.mustReady()
	size, align = Normalize(size, align)
	a.stats.FreeCalls++

	if addr < a.start || addr > a.end || size > a.end-addr || !format.IsAligned(addr, align) {
		a.stats.FreeRejected++
		return fmt.Errorf("%w: [%#x, +%d) heap [%#x, %#x)", ErrBadRelease, addr, size, a.start, a.end)
	}

	prev, succ := a.locate(format.NoRegion, addr)
	if prev != format.NoRegion && prev+a.size(prev) > addr {
		a.stats.FreeRejected++
		return fmt.Errorf("%w: [%#x, +%d) free region at %#x", ErrOverlap, addr, size, prev)
	}
	if succ != format.NoRegion && succ < addr+size {
		a.stats.FreeRejected++
		return fmt.Errorf("%w: [%#x, +%d) free region at %#x", ErrOverlap, addr, size, succ)
	}

	a.place(prev, succ, addr, size)
	a.stats.BytesFreed += uint64(size)
	return nil
}

// insert adds [addr, addr+size) to the list, scanning from the region at from
// (format.NoRegion for the head). from must start below addr.
func (a *Allocator) insert(from, addr, size uintptr) {
	prev, succ := a.locate(from, addr)
	a.place(prev, succ, addr, size)
}

// locate finds the neighbors addr belongs between: prev is the last region
// starting below addr (or the sentinel) and succ the one after it.
func (a *Allocator) locate(from, addr uintptr) (prev, succ uintptr) {
	prev = from
	succ = a.next(prev)
	for succ != format.NoRegion && succ < addr {
		prev = succ
		succ = a.next(succ)
	}
	return prev, succ
}

// place links a new region between prev and succ and coalesces it in both
// directions.
func (a *Allocator) place(prev, succ, addr, size uintptr) {
	// Forward: absorb successors while they touch.
	for succ != format.NoRegion && addr+size == succ {
		size += a.size(succ)
		succ = a.next(succ)
		a.stats.CoalesceForward++
	}

	// Backward: the sentinel owns no memory, so it never absorbs anything.
	if prev != format.NoRegion && prev+a.size(prev) == addr {
		a.setSize(prev, a.size(prev)+size)
		a.setNext(prev, succ)
		a.stats.CoalesceBackward++
		return
	}

	a.writeHeader(addr, size, succ)
	a.link(prev, addr)
}

type fitVerdict int

const (
	fitOK fitVerdict = iota
	fitTooSmall
	fitRejected
)

// fit decides whether a size/align block can come out of the region at
// [start, start+regionSize). Leftovers on either side must be empty or large
// enough to become free regions of their own.
func fit(start, regionSize, size, align uintptr) (uintptr, fitVerdict) {
	addr, ok := format.AlignUpChecked(start, align)
	end := start + regionSize
	if !ok || addr > end || size > end-addr {
		return 0, fitTooSmall
	}

	pre := addr - start
	post := end - (addr + size)
	if (pre > 0 && pre < format.HeaderSize) || (post > 0 && post < format.HeaderSize) {
		return 0, fitRejected
	}
	return addr, fitOK
}

// Walk calls fn for each header in list order until fn returns false.
// The walk is bounded by the number of headers the heap could hold, so a
// corrupted cyclic list still terminates.
func (a *Allocator) Walk(fn func(h Header) bool) {
	if !a.ready {
		return
	}
	limit := (a.end-a.start)/format.HeaderSize + 1
	for cur := a.head; cur != format.NoRegion && limit > 0; limit-- {
		h := Header{Addr: cur, Size: a.size(cur), Next: a.next(cur)}
		if !fn(h) {
			return
		}
		cur = h.Next
	}
}

// Regions returns a snapshot of the free list in address order.
func (a *Allocator) Regions() []Region {
	var out []Region
	a.Walk(func(h Header) bool {
		out = append(out, Region{Start: h.Addr, Size: h.Size})
		return true
	})
	return out
}

// FreeBytes returns the total size of all free regions.
func (a *Allocator) FreeBytes() uintptr {
	var total uintptr
	a.Walk(func(h Header) bool {
		total += h.Size
		return true
	})
	return total
}

// LargestFree returns the size of the largest free region.
func (a *Allocator) LargestFree() uintptr {
	var largest uintptr
	a.Walk(func(h Header) bool {
		largest = max(largest, h.Size)
		return true
	})
	return largest
}

// Bounds returns the heap range [start, end). Both are 0 before Init.
func (a *Allocator) Bounds() (start, end uintptr) {
	return a.start, a.end
}

// Initialized reports whether Init has run.
func (a *Allocator) Initialized() bool {
	return a.ready
}

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

func (a *Allocator) mustReady() {
	if !a.ready {
		panic("alloc: allocator used before Init")
	}
}

// Header access. addr == format.NoRegion addresses the sentinel.

func (a *Allocator) size(addr uintptr) uintptr {
	return uintptr(a.mem.Load64(addr + format.SizeFieldOffset))
}

func (a *Allocator) next(addr uintptr) uintptr {
	if addr == format.NoRegion {
		return a.head
	}
	return uintptr(a.mem.Load64(addr + format.NextFieldOffset))
}

func (a *Allocator) link(prev, next uintptr) {
	if prev == format.NoRegion {
		a.head = next
		return
	}
	a.setNext(prev, next)
}

func (a *Allocator) setSize(addr, size uintptr) {
	a.mem.Store64(addr+format.SizeFieldOffset, uint64(size))
	a.markDirty(addr+format.SizeFieldOffset, format.WordSize)
}

func (a *Allocator) setNext(addr, next uintptr) {
	a.mem.Store64(addr+format.NextFieldOffset, uint64(next))
	a.markDirty(addr+format.NextFieldOffset, format.WordSize)
}

func (a *Allocator) writeHeader(addr, size, next uintptr) {
	a.mem.Store64(addr+format.SizeFieldOffset, uint64(size))
	a.mem.Store64(addr+format.NextFieldOffset, uint64(next))
	a.markDirty(addr, format.HeaderSize)
}

func (a *Allocator) markDirty(addr uintptr, n int) {
	if a.dt != nil {
		a.dt.Add(addr, n)
	}
}
