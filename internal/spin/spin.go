// Package spin provides a busy-wait mutual exclusion primitive.
//
// The heap lock guards against re-entry from interrupt context on a single
// core, so acquisition never parks the caller: there is no scheduler beneath
// the allocator to park into. Critical sections must be short and must not
// call back into the allocator.
package spin

import "sync/atomic"

// Mutex is a spin lock. The zero value is unlocked.
//
// A Mutex must not be copied after first use.
type Mutex struct {
	_     noCopy
	state atomic.Uint32
}

// Lock acquires m, spinning until it is available.
func (m *Mutex) Lock() {
	for !m.state.CompareAndSwap(0, 1) {
		// Read-only spin until the holder releases, then retry the CAS.
		for m.state.Load() != 0 {
		}
	}
}

// TryLock acquires m if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	return m.state.CompareAndSwap(0, 1)
}

// Unlock releases m. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	if !m.state.CompareAndSwap(1, 0) {
		panic("spin: unlock of unlocked mutex")
	}
}

// Locked reports whether m is currently held.
func (m *Mutex) Locked() bool {
	return m.state.Load() != 0
}

// noCopy trips go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
