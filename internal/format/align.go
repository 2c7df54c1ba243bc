package format

// Alignment utilities shared by the allocator and the page mapper.
// All alignments are powers of two.

// IsPowerOfTwo reports whether a is a non-zero power of two.
func IsPowerOfTwo(a uintptr) bool {
	return a != 0 && a&(a-1) == 0
}

// AlignUp returns x rounded up to the next multiple of a.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 16) = 16
func AlignUp(x, a uintptr) uintptr {
	return (x + a - 1) &^ (a - 1)
}

// AlignUpChecked is AlignUp that reports false instead of wrapping around.
func AlignUpChecked(x, a uintptr) (uintptr, bool) {
	r := AlignUp(x, a)
	if r < x {
		return 0, false
	}
	return r, true
}

// AlignDown returns x rounded down to a multiple of a.
func AlignDown(x, a uintptr) uintptr {
	return x &^ (a - 1)
}

// IsAligned reports whether x is a multiple of a.
func IsAligned(x, a uintptr) bool {
	return x&(a-1) == 0
}

// AlignHeader returns n aligned up to HeaderAlign.
func AlignHeader(n uintptr) uintptr {
	return (n + HeaderAlignMask) &^ HeaderAlignMask
}

// AlignPage returns n aligned up to the next page boundary.
func AlignPage(n uintptr) uintptr {
	return (n + PageMask) &^ PageMask
}
