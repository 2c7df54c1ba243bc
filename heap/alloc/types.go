package alloc

import "github.com/joshuapare/kheap/heap/dirty"

// Memory is the word-level view of the heap's virtual range the allocator
// writes its headers through.
type Memory interface {
	Load64(addr uintptr) uint64
	Store64(addr uintptr, v uint64)
}

// DirtyTracker is a type alias for the canonical interface defined in heap/dirty.
type DirtyTracker = dirty.DirtyTracker

// Region is a snapshot of one free region.
type Region struct {
	Start uintptr
	Size  uintptr
}

// End returns the first address past r.
func (r Region) End() uintptr {
	return r.Start + r.Size
}

// Stats holds allocator counters.
type Stats struct {
	AllocCalls       int    // Total Alloc() calls
	AllocFailed      int    // Alloc() calls that returned ErrNoSpace
	FreeCalls        int    // Total Dealloc() calls
	FreeRejected     int    // Dealloc() calls refused with an error
	BytesAllocated   uint64 // Total normalized bytes granted
	BytesFreed       uint64 // Total normalized bytes released
	SplitCount       int    // Leftover pieces returned to the list by Alloc
	RejectedRegions  int    // Fitting regions skipped for a sub-header leftover
	CoalesceForward  int    // Forward merge operations
	CoalesceBackward int    // Backward merge operations
}
