// Package spin provides the busy-wait lock that serializes allocator state.
//
// A Lock never sleeps or blocks in the scheduler sense: Lock spins on an
// atomic flag until it wins the compare-and-swap. On a single core the holder
// cannot be preempted by a spinner, so a Lock must never be taken from
// interrupt context while the interrupted code may hold it.
package spin

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield bounds how long Lock spins before offering the processor
// to other goroutines. The kernel has no scheduler to yield to; under the Go
// runtime yielding keeps tests with more goroutines than Ps from livelocking.
const spinsBeforeYield = 64

// Lock is a test-and-set spinlock. The zero value is unlocked.
type Lock struct {
	locked atomic.Bool
}

// Lock spins until the lock is acquired.
func (l *Lock) Lock() {
	for spins := 0; !l.TryLock(); spins++ {
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Unlock releases the lock. Unlocking an unlocked Lock panics.
func (l *Lock) Unlock() {
	if !l.locked.CompareAndSwap(true, false) {
		panic("spin: unlock of unlocked lock")
	}
}

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool {
	return l.locked.Load()
}
