// Package frame supplies physical page frames to the heap bring-up path.
//
// The only Source shipped here is BootInfoSource, a monotonic allocator over
// the boot-provided memory map: it hands out every usable frame exactly once
// and has no way to take one back.
package frame

import (
	"math"

	"github.com/joshuapare/kheap/internal/format"
)

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by frame sources when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte of f.
func (f Frame) Address() uint64 {
	return uint64(f) << format.PageShift
}

// FrameFromAddress returns the Frame containing physAddr. Unaligned
// addresses are rounded down to the frame that contains them.
func FrameFromAddress(physAddr uint64) Frame {
	return Frame((physAddr &^ uint64(format.PageMask)) >> format.PageShift)
}

// Source hands out physical frames one at a time.
type Source interface {
	// NextFrame reserves the next available frame. It returns false once
	// no frame is left.
	NextFrame() (Frame, bool)
}
