package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/internal/format"
)

// TestSplit_RejectsSubHeaderTail verifies a region whose tail would be
// non-empty but smaller than a header is not used.
func TestSplit_RejectsSubHeaderTail(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)

	_, err := a.Alloc(4096-8, 8)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, 1, a.Stats().RejectedRegions)
	assert.Equal(t, []Region{{Start: testHeapStart, Size: 4096}}, a.Regions(), "rejected region must be untouched")
}

// TestSplit_KeepsHeaderSizedTail verifies a tail of exactly one header becomes a region.
func TestSplit_KeepsHeaderSizedTail(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)

	addr, err := a.Alloc(4096-format.HeaderSize, 8)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, addr)
	assert.Equal(t, []Region{{Start: testHeapStart + 4096 - format.HeaderSize, Size: format.HeaderSize}}, a.Regions())
	assertNoLoss(t, a, map[uintptr]uintptr{addr: 4096 - format.HeaderSize})
}

// TestSplit_ScanContinuesPastRejected verifies first-fit skips a rejected
// region and takes the next one that fits cleanly.
func TestSplit_ScanContinuesPastRejected(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)

	small, err := a.Alloc(64, 8)
	require.NoError(t, err)
	_, err = a.Alloc(16, 8) // guard
	require.NoError(t, err)
	require.NoError(t, a.Dealloc(small, 64, 8))

	// 56 out of the 64-byte region would strand 8 bytes.
	addr, err := a.Alloc(56, 8)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart+80, addr)
	assert.Equal(t, 1, a.Stats().RejectedRegions)

	// An exact fit still uses the small region.
	addr, err = a.Alloc(64, 8)
	require.NoError(t, err)
	assert.Equal(t, small, addr)
	assertInvariants(t, a)
}

// TestSplit_RejectsSubHeaderPreGap verifies the alignment gap is held to the
// same rule as the tail.
func TestSplit_RejectsSubHeaderPreGap(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)

	first, err := a.Alloc(24, 8)
	require.NoError(t, err)

	// The only region starts at +24; aligning to 32 leaves an 8-byte gap.
	_, err = a.Alloc(16, 32)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, 1, a.Stats().RejectedRegions)

	require.NoError(t, a.Dealloc(first, 24, 8))
	addr, err := a.Alloc(16, 32)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, addr)
}
