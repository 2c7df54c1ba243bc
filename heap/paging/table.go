package paging

import (
	"github.com/joshuapare/kheap/heap/frame"
	"github.com/joshuapare/kheap/internal/format"
)

// Mapper establishes a mapping for one page at a time.
type Mapper interface {
	Map(page Page, f frame.Frame, flags Flags) error
}

type entry struct {
	frame frame.Frame
	flags Flags
}

// PageTable is a simulated page table. It implements Mapper.
//
// NOT thread-safe. It is only mutated during single-threaded bring-up.
type PageTable struct {
	frames  frame.Source
	tables  map[uint64]frame.Frame // table index (page / TableEntries) -> frame holding it
	entries map[Page]entry
}

// NewPageTable creates an empty table that draws table frames from frames.
func NewPageTable(frames frame.Source) *PageTable {
	return &PageTable{
		frames:  frames,
		tables:  make(map[uint64]frame.Frame),
		entries: make(map[Page]entry),
	}
}

// Map maps page to f with the given flags.
//
// Returns a *MapError wrapping ErrAlreadyMapped if page is mapped, or
// ErrFrameShortage if a table frame was needed and none was available.
func (pt *PageTable) Map(page Page, f frame.Frame, flags Flags) error {
	if _, ok := pt.entries[page]; ok {
		return &MapError{Page: page, Err: ErrAlreadyMapped}
	}

	idx := uint64(page) / format.TableEntries
	if _, ok := pt.tables[idx]; !ok {
		tf, ok := pt.frames.NextFrame()
		if !ok {
			return &MapError{Page: page, Err: ErrFrameShortage}
		}
		pt.tables[idx] = tf
	}

	pt.entries[page] = entry{frame: f, flags: flags}
	return nil
}

// Translate resolves vaddr to a physical address. It returns false if the
// page is unmapped or not present.
func (pt *PageTable) Translate(vaddr uintptr) (uint64, Flags, bool) {
	e, ok := pt.entries[PageFromAddress(vaddr)]
	if !ok || !e.flags.Has(Present) {
		return 0, 0, false
	}
	return e.frame.Address() + uint64(vaddr&format.PageMask), e.flags, true
}

// Lookup returns the frame and flags mapped at page.
func (pt *PageTable) Lookup(page Page) (frame.Frame, Flags, bool) {
	e, ok := pt.entries[page]
	if !ok {
		return frame.InvalidFrame, 0, false
	}
	return e.frame, e.flags, true
}

// Mapped returns the number of mapped pages.
func (pt *PageTable) Mapped() int {
	return len(pt.entries)
}

// TableFrames returns the number of frames consumed by tables.
func (pt *PageTable) TableFrames() int {
	return len(pt.tables)
}
