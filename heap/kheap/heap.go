package kheap

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/spin"
)

// Memory is what consumers of the heap need from the mapped range: word
// access for the allocator's headers and byte access for block contents.
type Memory interface {
	alloc.Memory
	Read(addr uintptr, p []byte)
	Write(addr uintptr, p []byte)
}

// Heap is the locked façade over one allocator.
type Heap struct {
	mu  spin.Mutex
	a   *alloc.Allocator
	mem Memory
}

// New wraps a, which must already be initialized over memory reachable
// through mem.
func New(a *alloc.Allocator, mem Memory) *Heap {
	if a == nil || !a.Initialized() {
		panic("kheap: allocator not initialized")
	}
	return &Heap{a: a, mem: mem}
}

// Request returns a block of at least size bytes aligned to align.
// On exhaustion it returns 0 and alloc.ErrNoSpace.
func (h *Heap) Request(size, align uintptr) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	addr, err := h.a.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

// MustRequest is Request for callers with no way to recover from
// exhaustion. Running out of heap panics.
func (h *Heap) MustRequest(size, align uintptr) uintptr {
	addr, err := h.Request(size, align)
	if err != nil {
		panic(fmt.Sprintf("kheap: out of memory requesting %d bytes (align %d): %v", size, align, err))
	}
	return addr
}

// Release returns a block obtained from Request.
func (h *Heap) Release(addr, size, align uintptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Dealloc(addr, size, align)
}

// Memory returns the memory blocks live in.
func (h *Heap) Memory() Memory {
	return h.mem
}

// Bounds returns the heap range [start, end).
func (h *Heap) Bounds() (start, end uintptr) {
	return h.a.Bounds()
}

// Stats returns the allocator counters.
func (h *Heap) Stats() alloc.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Stats()
}

// FreeBytes returns the total free space.
func (h *Heap) FreeBytes() uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.FreeBytes()
}

// LargestFree returns the largest single free region.
func (h *Heap) LargestFree() uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.LargestFree()
}

// Regions returns a snapshot of the free list.
func (h *Heap) Regions() []alloc.Region {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Regions()
}

// Snapshot copies the raw free-list headers under the lock.
func (h *Heap) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Snapshot{}
	s.Start, s.End = h.a.Bounds()
	h.a.Walk(func(hdr alloc.Header) bool {
		s.Headers = append(s.Headers, hdr)
		return true
	})
	return s
}

// Snapshot is a point-in-time copy of a heap's free list. It can be
// inspected without holding the heap lock.
type Snapshot struct {
	Start, End uintptr
	Headers    []alloc.Header
}

// Bounds returns the heap range the snapshot was taken from.
func (s Snapshot) Bounds() (start, end uintptr) {
	return s.Start, s.End
}

// Walk calls fn for each copied header until fn returns false.
func (s Snapshot) Walk(fn func(h alloc.Header) bool) {
	for _, hdr := range s.Headers {
		if !fn(hdr) {
			return
		}
	}
}

var installed atomic.Pointer[Heap]

// Install publishes h as the process-wide heap. It succeeds once.
func Install(h *Heap) error {
	if h == nil {
		panic("kheap: Install(nil)")
	}
	if !installed.CompareAndSwap(nil, h) {
		return ErrAlreadyInstalled
	}
	return nil
}

// Installed returns the process-wide heap, or nil before Install.
func Installed() *Heap {
	return installed.Load()
}
