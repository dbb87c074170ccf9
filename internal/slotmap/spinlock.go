package slotmap

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a test-and-set spinlock satisfying sync.Locker. Contending
// goroutines busy-wait, yielding the processor between attempts; it never
// sleeps. There is no backoff, so heavy contention burns CPU.
type SpinLock struct {
	locked atomic.Bool
}

// Lock spins until the lock is acquired.
func (l *SpinLock) Lock() {
	for !l.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	l.locked.Store(false)
}
