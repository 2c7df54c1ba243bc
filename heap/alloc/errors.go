package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free region satisfies the request.
	ErrNoSpace = errors.New("alloc: no free region large enough")

	// ErrBadRelease indicates a released block lies outside the heap or is misaligned.
	ErrBadRelease = errors.New("alloc: released block outside heap")

	// ErrOverlap indicates a released block overlaps a region that is already free.
	ErrOverlap = errors.New("alloc: released block overlaps a free region")
)
