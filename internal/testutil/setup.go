// Package testutil builds the simulated machines heap tests run on.
package testutil

import (
	"testing"

	"github.com/joshuapare/kheap/heap/frame"
	"github.com/joshuapare/kheap/heap/paging"
	"github.com/joshuapare/kheap/internal/format"
)

// TestHeapStart is the virtual address test heaps are placed at.
const TestHeapStart uintptr = format.DefaultHeapStart

// SetupMappedMemory backs [start, start+size) with fresh frames on a new
// simulated machine and returns the virtual memory view.
// Physical memory is released when the test ends.
//
// Example:
//
//	vm := testutil.SetupMappedMemory(t, testutil.TestHeapStart, 64*format.KiB)
//	a := alloc.New(vm, nil)
func SetupMappedMemory(t testing.TB, start, size uintptr) *paging.VirtualMemory {
	t.Helper()

	// Room for the pages, their tables, and the reserved first MiB.
	physSize := uint64(format.AlignPage(size)) + 2*format.MiB
	phys, err := paging.NewPhysMemory(int(physSize))
	if err != nil {
		t.Fatalf("Failed to map physical memory: %v", err)
	}
	t.Cleanup(func() { _ = phys.Close() })

	frames := frame.NewBootInfoSource(frame.DefaultMemoryMap(physSize))
	pt := paging.NewPageTable(frames)

	var mapErr error
	paging.PageRangeInclusive(start, start+size-1).Pages(func(p paging.Page) bool {
		f, ok := frames.NextFrame()
		if !ok {
			t.Fatalf("Out of frames mapping page %#x", p.Address())
		}
		mapErr = pt.Map(p, f, paging.Present|paging.Writable)
		return mapErr == nil
	})
	if mapErr != nil {
		t.Fatalf("Failed to map test heap: %v", mapErr)
	}

	return paging.NewVirtualMemory(pt, phys)
}
