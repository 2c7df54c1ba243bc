package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allocN allocates n blocks of size bytes and returns their addresses.
func allocN(t *testing.T, a *Allocator, n int, size uintptr) []uintptr {
	t.Helper()
	addrs := make([]uintptr, n)
	for i := range addrs {
		addr, err := a.Alloc(size, 8)
		require.NoError(t, err, "alloc %d of %d", i, n)
		addrs[i] = addr
	}
	return addrs
}

func TestCoalesce_Forward(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)
	blk := allocN(t, a, 2, 256)

	// Freeing B touches the tail region that follows it.
	require.NoError(t, a.Dealloc(blk[1], 256, 8))
	require.Equal(t, []Region{{Start: testHeapStart + 256, Size: 3840}}, a.Regions())

	require.NoError(t, a.Dealloc(blk[0], 256, 8))
	require.Equal(t, []Region{{Start: testHeapStart, Size: 4096}}, a.Regions())

	stats := a.Stats()
	assert.Equal(t, 2, stats.CoalesceForward)
	assert.Zero(t, stats.CoalesceBackward)
}

func TestCoalesce_Backward(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)
	blk := allocN(t, a, 3, 256)

	require.NoError(t, a.Dealloc(blk[0], 256, 8))
	require.NoError(t, a.Dealloc(blk[1], 256, 8))

	require.Equal(t, []Region{
		{Start: testHeapStart, Size: 512},
		{Start: testHeapStart + 768, Size: 3328},
	}, a.Regions())
	assert.Equal(t, 1, a.Stats().CoalesceBackward)
	assertInvariants(t, a)
}

func TestCoalesce_BothDirections(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)
	blk := allocN(t, a, 3, 256)

	require.NoError(t, a.Dealloc(blk[0], 256, 8))
	require.Len(t, a.Regions(), 2)

	// C sits between A and the tail: it must join both.
	require.NoError(t, a.Dealloc(blk[2], 256, 8))
	require.Len(t, a.Regions(), 2)
	require.NoError(t, a.Dealloc(blk[1], 256, 8))

	require.Equal(t, []Region{{Start: testHeapStart, Size: 4096}}, a.Regions())
	stats := a.Stats()
	assert.Equal(t, 2, stats.CoalesceForward)
	assert.Equal(t, 1, stats.CoalesceBackward)
}

func TestCoalesce_HeapStartHasNoPredecessor(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)

	addr, err := a.Alloc(4096, 8)
	require.NoError(t, err)
	require.Empty(t, a.Regions())

	require.NoError(t, a.Dealloc(addr, 4096, 8))
	require.Equal(t, []Region{{Start: testHeapStart, Size: 4096}}, a.Regions())

	stats := a.Stats()
	assert.Zero(t, stats.CoalesceForward)
	assert.Zero(t, stats.CoalesceBackward)
}

func TestCoalesce_NonAdjacentStaySeparate(t *testing.T) {
	a, _ := newTestAllocator(t, 4096)
	blk := allocN(t, a, 6, 256)

	for _, i := range []int{0, 2, 4} {
		require.NoError(t, a.Dealloc(blk[i], 256, 8))
	}

	regions := a.Regions()
	require.Len(t, regions, 4)
	assertInvariants(t, a)
	for i, r := range regions[:3] {
		assert.Equal(t, blk[2*i], r.Start)
		assert.Equal(t, uintptr(256), r.Size)
	}
}

// TestCoalesce_FullReassembly is the 4096/256/10 scenario: after freeing every
// block in any order the heap is one region again and a single request for
// the combined size lands at the heap start.
func TestCoalesce_FullReassembly(t *testing.T) {
	orders := map[string]func([]uintptr) []uintptr{
		"forward": func(b []uintptr) []uintptr { return b },
		"reverse": func(b []uintptr) []uintptr {
			out := make([]uintptr, len(b))
			for i, v := range b {
				out[len(b)-1-i] = v
			}
			return out
		},
		"interleaved": func(b []uintptr) []uintptr {
			var out []uintptr
			for i := 0; i < len(b); i += 2 {
				out = append(out, b[i])
			}
			for i := 1; i < len(b); i += 2 {
				out = append(out, b[i])
			}
			return out
		},
		"shuffled": func(b []uintptr) []uintptr {
			out := append([]uintptr(nil), b...)
			rand.New(rand.NewSource(7)).Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
			return out
		},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			a, _ := newTestAllocator(t, 4096)
			blk := allocN(t, a, 10, 256)

			for _, addr := range order(blk) {
				require.NoError(t, a.Dealloc(addr, 256, 8))
				assertInvariants(t, a)
			}
			require.Equal(t, []Region{{Start: testHeapStart, Size: 4096}}, a.Regions())

			big, err := a.Alloc(2560, 8)
			require.NoError(t, err)
			assert.Equal(t, testHeapStart, big)
		})
	}
}
