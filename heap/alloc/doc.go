// Package alloc implements the kernel's free-list heap allocator.
//
// # Overview
//
// The heap is a fixed, fully mapped virtual range. Free space inside it is
// tracked by a singly-linked list of free-region headers written in place at
// the start of each free region; no bookkeeping lives outside the heap apart
// from the sentinel head held by the Allocator itself.
//
// Each header is two little-endian words (see internal/format):
//
//	0x00  size  bytes spanned by the region, header included
//	0x08  next  address of the next free region, or 0
//
// # Invariants
//
// Before and after every public call the list is:
//
//  1. Strictly ordered by ascending start address.
//  2. Free of overlap.
//  3. Free of byte-adjacent regions: touching regions are always merged.
//  4. Made of regions at least HeaderSize bytes long.
//  5. Contained in the heap range.
//
// # Allocation
//
// Alloc normalizes the request so every block can later hold a header,
// then walks the list in address order and takes the first region that fits
// (first-fit). A region whose alignment gap or tail would be a non-empty
// fragment smaller than a header is skipped rather than split. The chosen
// region is unlinked and its leftover pieces go back through the same
// insertion path Dealloc uses.
//
// # Deallocation
//
// Dealloc inserts the block at its address-ordered position and merges it
// with its successor and predecessor when they touch.
//
// # Usage Example
//
//	a := alloc.New(vm, nil)
//	a.Init(format.DefaultHeapStart, format.DefaultHeapSize)
//
//	addr, err := a.Alloc(256, 8)
//	if err != nil {
//	    return err // alloc.ErrNoSpace
//	}
//	// ...
//	err = a.Dealloc(addr, 256, 8)
//
// # Thread Safety
//
// Allocator instances are not thread-safe. The kernel reaches the allocator
// only through the locked façade in heap/kheap.
package alloc
