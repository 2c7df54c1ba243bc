package kheap

import "fmt"

// minBufferCap is the capacity of a buffer's first block.
const minBufferCap = 16

// Buffer is a growable byte buffer whose storage is a heap block.
// Growing doubles the capacity, copies the contents into the new block and
// releases the old one.
//
// NOT thread-safe.
type Buffer struct {
	h    *Heap
	addr uintptr
	len  int
	cap  int
}

// NewBuffer returns an empty buffer that allocates from h.
func NewBuffer(h *Heap) *Buffer {
	return &Buffer{h: h}
}

// Append copies p onto the end of the buffer, growing it as needed.
// On exhaustion it returns the allocator error and leaves the buffer unchanged.
func (b *Buffer) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if need := b.len + len(p); need > b.cap {
		if err := b.grow(need); err != nil {
			return err
		}
	}
	b.h.mem.Write(b.addr+uintptr(b.len), p)
	b.len += len(p)
	return nil
}

func (b *Buffer) grow(need int) error {
	newCap := max(b.cap*2, need, minBufferCap)
	addr, err := b.h.Request(uintptr(newCap), 1)
	if err != nil {
		return fmt.Errorf("kheap: grow buffer to %d bytes: %w", newCap, err)
	}

	if b.len > 0 {
		tmp := make([]byte, b.len)
		b.h.mem.Read(b.addr, tmp)
		b.h.mem.Write(addr, tmp)
	}

	oldAddr, oldCap := b.addr, b.cap
	b.addr, b.cap = addr, newCap
	if oldCap > 0 {
		if err := b.h.Release(oldAddr, uintptr(oldCap), 1); err != nil {
			return fmt.Errorf("kheap: release old buffer block: %w", err)
		}
	}
	return nil
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.len)
	if b.len > 0 {
		b.h.mem.Read(b.addr, out)
	}
	return out
}

// Len returns the number of bytes stored.
func (b *Buffer) Len() int { return b.len }

// Cap returns the size of the current block.
func (b *Buffer) Cap() int { return b.cap }

// Addr returns the address of the current block, or 0 if none is held.
func (b *Buffer) Addr() uintptr { return b.addr }

// Free releases the buffer's block. The buffer may be reused afterwards.
func (b *Buffer) Free() error {
	if b.cap == 0 {
		return nil
	}
	err := b.h.Release(b.addr, uintptr(b.cap), 1)
	b.addr, b.len, b.cap = 0, 0, 0
	return err
}
