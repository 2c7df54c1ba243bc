// Package kheap is the kernel's single entry point for dynamic memory.
//
// A Heap wraps an initialized alloc.Allocator behind a spin lock so that
// every request and release observes a complete free list. Install publishes
// one Heap process-wide; boot code installs it once and it is never reset.
//
// Callers track their own block sizes. Release must receive exactly the
// (addr, size, align) triple that produced the block:
//
//	addr, err := h.Request(128, 16)
//	if err != nil {
//	    return err // out of memory
//	}
//	defer h.Release(addr, 128, 16)
//
// Buffer is a growable byte buffer whose storage lives inside the heap.
package kheap
