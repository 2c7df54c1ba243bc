// Package paging establishes virtual-to-physical mappings for the heap range
// and gives the allocator a view of memory through them.
//
// # Overview
//
// PageTable is a simulated last-level page table keyed by virtual page. Every
// group of TableEntries pages needs one table frame, which the table draws
// lazily from the frame.Source it was built with; running out of frames for a
// table is a mapping failure, just as mapping an already-mapped page is.
//
// VirtualMemory resolves virtual addresses through a PageTable into a
// PhysMemory arena. Touching an unmapped page, or storing to a page that is
// not writable, is a page fault: there is no handler to recover it, so the
// access panics with a *Fault.
//
// # Usage Example
//
//	phys, err := paging.NewPhysMemory(8 * format.MiB)
//	frames := frame.NewBootInfoSource(frame.DefaultMemoryMap(8 * format.MiB))
//	pt := paging.NewPageTable(frames)
//	f, _ := frames.NextFrame()
//	err = pt.Map(paging.PageFromAddress(addr), f, paging.Present|paging.Writable)
//	vm := paging.NewVirtualMemory(pt, phys)
//	vm.Store64(addr, 42)
package paging
