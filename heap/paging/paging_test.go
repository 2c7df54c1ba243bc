package paging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/heap/frame"
	"github.com/joshuapare/kheap/internal/format"
)

const testPhysSize = 4 * format.MiB

// newTestMachine returns a table over the usable frames of a small machine,
// its virtual memory view, and the frame source both draw from.
func newTestMachine(t *testing.T) (*PageTable, *VirtualMemory, *frame.BootInfoSource) {
	t.Helper()
	phys, err := NewPhysMemory(testPhysSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = phys.Close() })

	frames := frame.NewBootInfoSource(frame.DefaultMemoryMap(testPhysSize))
	pt := NewPageTable(frames)
	return pt, NewVirtualMemory(pt, phys), frames
}

// mapRange backs [start, start+n pages) with fresh frames.
func mapRange(t *testing.T, pt *PageTable, frames frame.Source, start uintptr, n int, flags Flags) {
	t.Helper()
	for i := range n {
		f, ok := frames.NextFrame()
		require.True(t, ok, "out of frames at page %d", i)
		require.NoError(t, pt.Map(PageFromAddress(start)+Page(i), f, flags))
	}
}

func TestPageRangeInclusive(t *testing.T) {
	r := PageRangeInclusive(0x1000, 0x1000+3*format.PageSize-1)
	assert.Equal(t, 3, r.Len())
	var visited []Page
	r.Pages(func(p Page) bool {
		visited = append(visited, p)
		return true
	})
	assert.Equal(t, []Page{1, 2, 3}, visited)

	stopped := 0
	r.Pages(func(Page) bool {
		stopped++
		return false
	})
	assert.Equal(t, 1, stopped)
	assert.Zero(t, PageRange{First: 5, Last: 4}.Len())
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "none", Flags(0).String())
	assert.Equal(t, "present|writable", (Present | Writable).String())
}

func TestMapAndTranslate(t *testing.T) {
	pt, _, frames := newTestMachine(t)
	const base = uintptr(0x4444_4444_0000)

	f, ok := frames.NextFrame()
	require.True(t, ok)
	require.NoError(t, pt.Map(PageFromAddress(base), f, Present|Writable))

	paddr, flags, ok := pt.Translate(base + 0x123)
	require.True(t, ok)
	assert.Equal(t, f.Address()+0x123, paddr)
	assert.True(t, flags.Has(Writable))
	assert.Equal(t, 1, pt.Mapped())
	assert.Equal(t, 1, pt.TableFrames())

	_, _, ok = pt.Translate(base + format.PageSize)
	assert.False(t, ok)
}

func TestMapConflict(t *testing.T) {
	pt, _, frames := newTestMachine(t)
	f, _ := frames.NextFrame()
	require.NoError(t, pt.Map(7, f, Present|Writable))

	err := pt.Map(7, f, Present|Writable)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyMapped))
	var me *MapError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, Page(7), me.Page)
}

func TestMapFrameShortage(t *testing.T) {
	// A machine with no usable memory cannot provide a table frame.
	pt := NewPageTable(frame.NewBootInfoSource(frame.MemoryMap{}))
	err := pt.Map(0, frame.Frame(1), Present)
	assert.ErrorIs(t, err, ErrFrameShortage)
	assert.Zero(t, pt.Mapped())
}

func TestTableFramePerGroup(t *testing.T) {
	pt, _, frames := newTestMachine(t)
	mapRange(t, pt, frames, 0, format.TableEntries+1, Present|Writable)
	assert.Equal(t, 2, pt.TableFrames())
}

func TestVirtualMemoryWordAccess(t *testing.T) {
	pt, vm, frames := newTestMachine(t)
	const base = uintptr(0x10_0000_0000)
	mapRange(t, pt, frames, base, 2, Present|Writable)

	vm.Store64(base+format.PageSize-8, 0xfeedface)
	vm.Store64(base+format.PageSize, 0xcafebabe)
	assert.Equal(t, uint64(0xfeedface), vm.Load64(base+format.PageSize-8))
	assert.Equal(t, uint64(0xcafebabe), vm.Load64(base+format.PageSize))
}

func TestVirtualMemoryByteCopyCrossesPages(t *testing.T) {
	pt, vm, frames := newTestMachine(t)
	const base = uintptr(0x20_0000_0000)
	mapRange(t, pt, frames, base, 3, Present|Writable)

	src := make([]byte, 2*format.PageSize+100)
	for i := range src {
		src[i] = byte(i * 7)
	}
	vm.Write(base+50, src)
	dst := make([]byte, len(src))
	vm.Read(base+50, dst)
	assert.Equal(t, src, dst)
}

func TestVirtualMemoryFaults(t *testing.T) {
	pt, vm, frames := newTestMachine(t)
	const base = uintptr(0x30_0000_0000)
	mapRange(t, pt, frames, base, 1, Present)

	assertFault := func(reason string, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a fault")
			f, ok := r.(*Fault)
			require.True(t, ok, "panic value %T is not a *Fault", r)
			assert.Equal(t, reason, f.Reason)
		}()
		fn()
	}

	assertFault("page not mapped", func() { vm.Load64(base + format.PageSize) })
	assertFault("page not writable", func() { vm.Store64(base, 1) })
	assertFault("misaligned word access", func() { vm.Load64(base + 4) })
	assert.Zero(t, vm.Load64(base), "read-only page is still readable")
}
