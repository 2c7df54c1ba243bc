package boot

import (
	"fmt"

	"github.com/joshuapare/kheap/heap/dirty"
	"github.com/joshuapare/kheap/heap/frame"
	"github.com/joshuapare/kheap/heap/paging"
)

// Machine is the simulated hardware the heap is brought up on.
type Machine struct {
	MemoryMap frame.MemoryMap
	Phys      *paging.PhysMemory
	Frames    *frame.BootInfoSource
	Table     *paging.PageTable
	Memory    *paging.VirtualMemory
	Dirty     *dirty.Tracker
}

// NewMachine allocates physical memory and wires a frame source, page table
// and virtual memory view over it. Close releases the physical memory.
func NewMachine(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	phys, err := paging.NewPhysMemory(int(cfg.PhysSize))
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	mm := cfg.memoryMap()
	frames := frame.NewBootInfoSource(mm)
	pt := paging.NewPageTable(frames)

	return &Machine{
		MemoryMap: mm,
		Phys:      phys,
		Frames:    frames,
		Table:     pt,
		Memory:    paging.NewVirtualMemory(pt, phys),
		Dirty:     dirty.NewTracker(),
	}, nil
}

// Close releases the machine's physical memory.
func (m *Machine) Close() error {
	if m == nil || m.Phys == nil {
		return nil
	}
	if err := m.Phys.Close(); err != nil {
		return fmt.Errorf("boot: close machine: %w", err)
	}
	return nil
}
