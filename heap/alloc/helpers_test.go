package alloc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/internal/format"
)

// testHeapStart is the base address of every test heap. Any non-zero,
// page-aligned value works; this one keeps addresses readable in failures.
const testHeapStart uintptr = 0x10_0000

// ============================================================================
// Memory Utilities
// ============================================================================

// flatMemory is a contiguous byte slice addressed from base. Out-of-range or
// misaligned word access fails the test through a panic, as a page fault would.
type flatMemory struct {
	base uintptr
	buf  []byte
}

func newFlatMemory(base, size uintptr) *flatMemory {
	return &flatMemory{base: base, buf: make([]byte, size)}
}

func (m *flatMemory) offset(addr uintptr) int {
	if addr < m.base || addr+format.WordSize > m.base+uintptr(len(m.buf)) || addr%format.WordSize != 0 {
		panic(fmt.Sprintf("flatMemory: bad word access at %#x", addr))
	}
	return int(addr - m.base)
}

func (m *flatMemory) Load64(addr uintptr) uint64 {
	return format.ReadU64(m.buf, m.offset(addr))
}

func (m *flatMemory) Store64(addr uintptr, v uint64) {
	format.PutU64(m.buf, m.offset(addr), v)
}

// ============================================================================
// Allocator Utilities
// ============================================================================

// newTestAllocator returns an allocator over a fresh heap of size bytes at
// testHeapStart.
func newTestAllocator(t testing.TB, size uintptr) (*Allocator, *flatMemory) {
	t.Helper()
	mem := newFlatMemory(testHeapStart, size)
	a := New(mem, nil)
	a.Init(testHeapStart, size)
	return a, mem
}

// MockDirtyTracker records Add calls.
type MockDirtyTracker struct {
	Calls []DirtyCall
}

// DirtyCall is one recorded Add call.
type DirtyCall struct {
	Addr uintptr
	Len  int
}

func newMockDirtyTracker() *MockDirtyTracker {
	return &MockDirtyTracker{Calls: make([]DirtyCall, 0, 32)}
}

func (m *MockDirtyTracker) Add(addr uintptr, length int) {
	m.Calls = append(m.Calls, DirtyCall{Addr: addr, Len: length})
}

// WasCalledAt reports whether any recorded range covers addr.
func (m *MockDirtyTracker) WasCalledAt(addr uintptr) bool {
	for _, c := range m.Calls {
		if c.Addr <= addr && addr < c.Addr+uintptr(c.Len) {
			return true
		}
	}
	return false
}

func (m *MockDirtyTracker) Reset() {
	m.Calls = m.Calls[:0]
}

// ============================================================================
// Invariant Checks
// ============================================================================

// assertInvariants checks the free-list invariants directly from the headers.
// heap/verify has the full validator; this copy keeps the package tests free
// of an import cycle.
func assertInvariants(t testing.TB, a *Allocator) {
	t.Helper()
	start, end := a.Bounds()

	var prevEnd uintptr
	first := true
	a.Walk(func(h Header) bool {
		require.GreaterOrEqual(t, h.Addr, start, "region %#x below heap", h.Addr)
		require.LessOrEqual(t, h.Addr+h.Size, end, "region %#x runs past heap end", h.Addr)
		require.GreaterOrEqual(t, h.Size, uintptr(format.HeaderSize), "region %#x smaller than a header", h.Addr)
		require.Zero(t, h.Addr%format.HeaderAlign, "region %#x misaligned", h.Addr)
		if !first {
			require.Greater(t, h.Addr, prevEnd, "region %#x overlaps or touches its predecessor", h.Addr)
		}
		if h.Next != format.NoRegion {
			require.Greater(t, h.Next, h.Addr, "region %#x links backward", h.Addr)
		}
		prevEnd = h.Addr + h.Size
		first = false
		return true
	})
}

// assertNoLoss checks free bytes plus outstanding normalized sizes equal the heap.
func assertNoLoss(t testing.TB, a *Allocator, outstanding map[uintptr]uintptr) {
	t.Helper()
	start, end := a.Bounds()
	var used uintptr
	for _, size := range outstanding {
		used += size
	}
	require.Equal(t, end-start, a.FreeBytes()+used, "free plus outstanding must equal heap size")
}
