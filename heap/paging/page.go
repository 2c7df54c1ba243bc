package paging

import (
	"strings"

	"github.com/joshuapare/kheap/internal/format"
)

// Page describes a virtual memory page index.
type Page uint64

// Address returns the virtual address of the first byte of p.
func (p Page) Address() uintptr {
	return uintptr(p) << format.PageShift
}

// PageFromAddress returns the Page that contains virtAddr. Unaligned
// addresses are rounded down to the page that contains them.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr &^ uintptr(format.PageMask)) >> format.PageShift)
}

// PageRange is an inclusive range of pages.
type PageRange struct {
	First Page
	Last  Page
}

// PageRangeInclusive returns the pages containing start through end, both inclusive.
func PageRangeInclusive(start, end uintptr) PageRange {
	return PageRange{First: PageFromAddress(start), Last: PageFromAddress(end)}
}

// Len returns the number of pages in r.
func (r PageRange) Len() int {
	if r.Last < r.First {
		return 0
	}
	return int(r.Last-r.First) + 1
}

// Pages calls fn for every page in r in ascending order, stopping early if fn returns false.
func (r PageRange) Pages(fn func(Page) bool) {
	if r.Last < r.First {
		return
	}
	for p := r.First; ; p++ {
		if !fn(p) || p == r.Last {
			return
		}
	}
}

// Flags is the permission set of a mapping.
type Flags uint8

const (
	// Present marks the mapping valid.
	Present Flags = 1 << iota
	// Writable allows stores through the mapping.
	Writable
)

// Has reports whether all bits of want are set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// String implements fmt.Stringer for Flags.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(Present) {
		parts = append(parts, "present")
	}
	if f.Has(Writable) {
		parts = append(parts, "writable")
	}
	return strings.Join(parts, "|")
}
