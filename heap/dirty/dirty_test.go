package dirty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = uintptr(0x4444_4444_0000)

func Test_DirtyTracker_PageAlignment(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(base+100, 200)

	coalesced := tracker.Coalesced()
	require.Len(t, coalesced, 1)
	assert.Equal(t, base, coalesced[0].Addr)
	assert.Equal(t, uintptr(4096), coalesced[0].Len)
}

func Test_DirtyTracker_Coalesce_Adjacent(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(base+4096, 8)
	tracker.Add(base+8192+16, 8)

	coalesced := tracker.Coalesced()
	require.Len(t, coalesced, 1, "adjacent pages should merge")
	assert.Equal(t, base+4096, coalesced[0].Addr)
	assert.Equal(t, uintptr(8192), coalesced[0].Len)
	assert.Equal(t, 2, tracker.Pages())
}

func Test_DirtyTracker_Coalesce_Unsorted(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(base+5*4096, 16)
	tracker.Add(base, 16)
	tracker.Add(base+5*4096+8, 8)

	coalesced := tracker.Coalesced()
	require.Len(t, coalesced, 2)
	assert.Equal(t, base, coalesced[0].Addr)
	assert.Equal(t, base+5*4096, coalesced[1].Addr)
	assert.Equal(t, 3, tracker.Writes())
}

func Test_DirtyTracker_SpanningWrite(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(base+4096-8, 16)
	assert.Equal(t, 2, tracker.Pages())
}

func Test_DirtyTracker_BoundedGrowth(t *testing.T) {
	tracker := NewTracker()
	for i := range 10000 {
		tracker.Add(base+uintptr(i%8)*4096, 8)
	}
	assert.LessOrEqual(t, len(tracker.ranges), 4*defaultRangeCapacity)
	assert.Equal(t, 8, tracker.Pages())
	assert.Equal(t, 10000, tracker.Writes())
}

func Test_DirtyTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(base, 8)
	tracker.Add(base, 0)
	tracker.Reset()
	assert.Empty(t, tracker.Coalesced())
	assert.Zero(t, tracker.Writes())
	assert.Zero(t, tracker.Pages())
}
