// Package format holds the low-level layout of the kernel heap: the in-place
// free-region header, page geometry, and the defaults the kernel boots with.
// Higher-level packages share these so that the allocator, the page mapper,
// and the validators agree on one geometry.
package format

const (
	// HeaderSize is the size of a free-region header in bytes. A header is
	// two little-endian 64-bit words written at the start of a free region:
	//
	//	0x00  size  bytes spanned by the region, header included
	//	0x08  next  address of the next free region, 0 for none
	HeaderSize = 16

	// HeaderAlign is the alignment every header (and so every granted block) must satisfy.
	HeaderAlign = 8

	// HeaderAlignMask is HeaderAlign - 1.
	HeaderAlignMask = HeaderAlign - 1

	// SizeFieldOffset and NextFieldOffset locate the header words.
	SizeFieldOffset = 0x00
	NextFieldOffset = 0x08

	// WordSize is the width of one header word.
	WordSize = 8

	// NoRegion is the value of a next field that points nowhere.
	NoRegion = 0
)

const (
	// PageShift is log2(PageSize).
	PageShift = 12

	// PageSize is the size of a virtual page and of a physical frame.
	PageSize = 1 << PageShift

	// PageMask is PageSize - 1.
	PageMask = PageSize - 1

	// TableEntries is the number of pages covered by one last-level page table.
	TableEntries = 512
)

const (
	// KiB and MiB are byte multiples.
	KiB = 1 << 10
	MiB = 1 << 20

	// DefaultHeapStart is the virtual address the kernel reserves for its heap.
	DefaultHeapStart = 0x_4444_4444_0000

	// DefaultHeapSize is the size of the kernel heap (2^22 bytes).
	DefaultHeapSize = 4 * MiB

	// DefaultPhysSize is the size of simulated physical memory backing the machine.
	DefaultPhysSize = 8 * MiB

	// DefaultChunkSize and DefaultChunkCount drive the coalescence self-test.
	DefaultChunkSize  = 256
	DefaultChunkCount = 14000
)
