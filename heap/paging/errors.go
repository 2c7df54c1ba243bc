package paging

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyMapped indicates the page already has a mapping.
	ErrAlreadyMapped = errors.New("paging: page already mapped")

	// ErrFrameShortage indicates no frame was available for a page table.
	ErrFrameShortage = errors.New("paging: frame allocation failed")
)

// MapError reports which page a Map call failed for.
type MapError struct {
	Page Page
	Err  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("map page 0x%x: %v", e.Page.Address(), e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

// Fault describes an access the page table cannot satisfy. It is raised as
// a panic value.
type Fault struct {
	Addr   uintptr
	Write  bool
	Reason string
}

func (f *Fault) Error() string {
	kind := "read"
	if f.Write {
		kind = "write"
	}
	return fmt.Sprintf("page fault: %s at 0x%x: %s", kind, f.Addr, f.Reason)
}
