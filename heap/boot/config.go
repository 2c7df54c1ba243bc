// Package boot brings the kernel heap up on a simulated machine.
//
// InitHeap runs the bring-up stages in order against caller-supplied
// collaborators: it works out the page range covering the heap, backs every
// page with a fresh frame, initializes the allocator over the range and runs
// the coalescence self-test. Each stage prints a "name...[ok]" line to the
// configured console. A failing stage stops the sequence; a heap that is only
// partly mapped never reaches the allocator.
//
// Boot builds the collaborators from a Config (see Machine) and runs InitHeap
// on them.
package boot

import (
	"fmt"
	"io"
	"math"

	"github.com/joshuapare/kheap/heap/dirty"
	"github.com/joshuapare/kheap/heap/frame"
	"github.com/joshuapare/kheap/heap/selftest"
	"github.com/joshuapare/kheap/internal/format"
)

// Config holds options for heap bring-up.
type Config struct {
	HeapStart uintptr // virtual address of the first heap byte
	HeapSize  uintptr // bytes of heap

	// PhysSize is the size of simulated physical memory.
	PhysSize uint64

	// MemoryMap is the boot memory map. Nil means frame.DefaultMemoryMap(PhysSize).
	MemoryMap frame.MemoryMap

	SelfTest     selftest.Options // zero fields take the self-test defaults
	SkipSelfTest bool

	// Dirty receives the allocator's header writes. Optional.
	Dirty dirty.DirtyTracker

	// Console receives stage diagnostics. Nil discards them.
	Console io.Writer
}

// DefaultConfig returns the configuration the kernel boots with.
func DefaultConfig() Config {
	return Config{
		HeapStart: format.DefaultHeapStart,
		HeapSize:  format.DefaultHeapSize,
		PhysSize:  format.DefaultPhysSize,
		SelfTest:  selftest.DefaultOptions(),
	}
}

// Validate checks the configuration for values bring-up cannot work with.
func (c Config) Validate() error {
	if err := c.validateHeap(); err != nil {
		return err
	}
	switch {
	case c.PhysSize == 0 || c.PhysSize > math.MaxInt:
		return fmt.Errorf("%w: physical memory size %d out of range", ErrInvalidConfig, c.PhysSize)
	case c.PhysSize%format.PageSize != 0:
		return fmt.Errorf("%w: physical memory size %d not page aligned", ErrInvalidConfig, c.PhysSize)
	case c.MemoryMap != nil && c.MemoryMap.End() > c.PhysSize:
		return fmt.Errorf("%w: memory map ends at %#x beyond physical memory %#x",
			ErrInvalidConfig, c.MemoryMap.End(), c.PhysSize)
	}
	return nil
}

// validateHeap checks only the heap range, which is all InitHeap needs when
// the caller brings its own machine.
func (c Config) validateHeap() error {
	switch {
	case c.HeapStart == 0:
		return fmt.Errorf("%w: heap start must be non-zero", ErrInvalidConfig)
	case !format.IsAligned(c.HeapStart, format.HeaderAlign):
		return fmt.Errorf("%w: heap start %#x not %d-byte aligned", ErrInvalidConfig, c.HeapStart, format.HeaderAlign)
	case c.HeapSize < format.HeaderSize:
		return fmt.Errorf("%w: heap size %d smaller than a header", ErrInvalidConfig, c.HeapSize)
	case c.HeapStart+c.HeapSize < c.HeapStart:
		return fmt.Errorf("%w: heap [%#x, +%#x) wraps the address space", ErrInvalidConfig, c.HeapStart, c.HeapSize)
	}
	return nil
}

func (c Config) memoryMap() frame.MemoryMap {
	if c.MemoryMap != nil {
		return c.MemoryMap
	}
	return frame.DefaultMemoryMap(c.PhysSize)
}

func (c Config) console() io.Writer {
	if c.Console != nil {
		return c.Console
	}
	return io.Discard
}
