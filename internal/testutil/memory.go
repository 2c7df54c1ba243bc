package testutil

import (
	"fmt"

	"github.com/joshuapare/kheap/internal/format"
)

// FlatMemory is a contiguous byte slice addressed from Base, for tests that
// do not need the page table. Out-of-range access panics.
type FlatMemory struct {
	Base uintptr
	Buf  []byte
}

// NewFlatMemory returns size zeroed bytes addressed from base.
func NewFlatMemory(base, size uintptr) *FlatMemory {
	return &FlatMemory{Base: base, Buf: make([]byte, size)}
}

func (m *FlatMemory) span(addr uintptr, n int) []byte {
	if addr < m.Base || addr-m.Base+uintptr(n) > uintptr(len(m.Buf)) {
		panic(fmt.Sprintf("testutil: access [%#x, +%d) outside flat memory", addr, n))
	}
	off := addr - m.Base
	return m.Buf[off : off+uintptr(n)]
}

// Load64 reads the little-endian word at addr.
func (m *FlatMemory) Load64(addr uintptr) uint64 {
	return format.ReadU64(m.span(addr, format.WordSize), 0)
}

// Store64 writes the little-endian word at addr.
func (m *FlatMemory) Store64(addr uintptr, v uint64) {
	format.PutU64(m.span(addr, format.WordSize), 0, v)
}

// Read copies len(p) bytes at addr into p.
func (m *FlatMemory) Read(addr uintptr, p []byte) {
	copy(p, m.span(addr, len(p)))
}

// Write copies p to addr.
func (m *FlatMemory) Write(addr uintptr, p []byte) {
	copy(m.span(addr, len(p)), p)
}
