package paging

import (
	"fmt"

	"github.com/joshuapare/kheap/internal/arena"
	"github.com/joshuapare/kheap/internal/format"
)

// PhysMemory is the simulated physical address space [0, Size()).
type PhysMemory struct {
	data    []byte
	cleanup func() error
}

// NewPhysMemory maps size bytes of zeroed backing memory.
func NewPhysMemory(size int) (*PhysMemory, error) {
	data, cleanup, err := arena.Map(size)
	if err != nil {
		return nil, fmt.Errorf("paging: physical memory: %w", err)
	}
	return &PhysMemory{data: data, cleanup: cleanup}, nil
}

// Size returns the number of bytes of physical memory.
func (m *PhysMemory) Size() uint64 {
	return uint64(len(m.data))
}

// Close releases the backing memory. The PhysMemory must not be used afterwards.
func (m *PhysMemory) Close() error {
	if m.cleanup == nil {
		return nil
	}
	err := m.cleanup()
	m.data = nil
	m.cleanup = nil
	return err
}

// span returns the n backing bytes at paddr or panics if they are out of range.
func (m *PhysMemory) span(paddr uint64, n int, write bool) []byte {
	if paddr > uint64(len(m.data)) || uint64(n) > uint64(len(m.data))-paddr {
		panic(&Fault{Addr: uintptr(paddr), Write: write, Reason: "physical address out of range"})
	}
	return m.data[paddr : paddr+uint64(n)]
}

// VirtualMemory reads and writes virtual addresses through a PageTable.
type VirtualMemory struct {
	pt   *PageTable
	phys *PhysMemory
}

// NewVirtualMemory returns a view of phys through pt.
func NewVirtualMemory(pt *PageTable, phys *PhysMemory) *VirtualMemory {
	return &VirtualMemory{pt: pt, phys: phys}
}

func (vm *VirtualMemory) resolve(addr uintptr, write bool) uint64 {
	paddr, flags, ok := vm.pt.Translate(addr)
	if !ok {
		panic(&Fault{Addr: addr, Write: write, Reason: "page not mapped"})
	}
	if write && !flags.Has(Writable) {
		panic(&Fault{Addr: addr, Write: write, Reason: "page not writable"})
	}
	return paddr
}

// Load64 reads the 64-bit word at addr, which must be 8-byte aligned.
func (vm *VirtualMemory) Load64(addr uintptr) uint64 {
	if !format.IsAligned(addr, format.WordSize) {
		panic(&Fault{Addr: addr, Reason: "misaligned word access"})
	}
	b := vm.phys.span(vm.resolve(addr, false), format.WordSize, false)
	return format.ReadU64(b, 0)
}

// Store64 writes the 64-bit word at addr, which must be 8-byte aligned.
func (vm *VirtualMemory) Store64(addr uintptr, v uint64) {
	if !format.IsAligned(addr, format.WordSize) {
		panic(&Fault{Addr: addr, Write: true, Reason: "misaligned word access"})
	}
	b := vm.phys.span(vm.resolve(addr, true), format.WordSize, true)
	format.PutU64(b, 0, v)
}

// Read copies len(p) bytes starting at addr into p, crossing pages as needed.
func (vm *VirtualMemory) Read(addr uintptr, p []byte) {
	for len(p) > 0 {
		n := min(len(p), format.PageSize-int(addr&format.PageMask))
		copy(p[:n], vm.phys.span(vm.resolve(addr, false), n, false))
		p = p[n:]
		addr += uintptr(n)
	}
}

// Write copies p to memory starting at addr, crossing pages as needed.
func (vm *VirtualMemory) Write(addr uintptr, p []byte) {
	for len(p) > 0 {
		n := min(len(p), format.PageSize-int(addr&format.PageMask))
		copy(vm.phys.span(vm.resolve(addr, true), n, true), p[:n])
		p = p[n:]
		addr += uintptr(n)
	}
}
