package frame

import "github.com/joshuapare/kheap/internal/format"

// BootInfoSource implements a rudimentary physical frame allocator that
// returns usable frames from the boot memory map.
//
// Usable regions are visited in map order. Region starts are rounded up
// and region ends rounded down to a page boundary, so a frame never covers
// bytes outside its region. Allocations are tracked by a cursor, which means
// frames cannot be freed.
type BootInfoSource struct {
	memoryMap MemoryMap

	// region is the index of the region the cursor is in.
	region int

	// next is the physical address of the next frame to issue, valid
	// only while started is true.
	next    uint64
	started bool

	// issued tracks the total number of allocated frames.
	issued uint64
}

// NewBootInfoSource returns a Source over the usable regions of m.
// The map is not copied; it must not change once the source is in use.
func NewBootInfoSource(m MemoryMap) *BootInfoSource {
	return &BootInfoSource{memoryMap: m}
}

// NextFrame reserves the next free frame in map order.
func (s *BootInfoSource) NextFrame() (Frame, bool) {
	const pageMask = uint64(format.PageMask)

	for s.region < len(s.memoryMap) {
		r := s.memoryMap[s.region]
		if r.Type != Usable {
			s.advance()
			continue
		}

		if !s.started {
			s.next = (r.Start + pageMask) &^ pageMask
			s.started = true
		}
		end := r.End &^ pageMask

		if s.next < s.next+format.PageSize && s.next+format.PageSize <= end {
			f := FrameFromAddress(s.next)
			s.next += format.PageSize
			s.issued++
			return f, true
		}
		s.advance()
	}
	return InvalidFrame, false
}

// Issued returns the number of frames handed out so far.
func (s *BootInfoSource) Issued() uint64 {
	return s.issued
}

// Remaining returns how many more frames the source can still issue.
func (s *BootInfoSource) Remaining() uint64 {
	const pageMask = uint64(format.PageMask)

	var total uint64
	for i := s.region; i < len(s.memoryMap); i++ {
		r := s.memoryMap[i]
		if r.Type != Usable {
			continue
		}
		start := (r.Start + pageMask) &^ pageMask
		if i == s.region && s.started {
			start = s.next
		}
		end := r.End &^ pageMask
		if end > start {
			total += (end - start) >> format.PageShift
		}
	}
	return total
}

func (s *BootInfoSource) advance() {
	s.region++
	s.started = false
}
