package slotmap

import "sync"

// Locked provides mutual exclusion around a Serial bitmap. The locking
// discipline is pluggable: NewMutex blocks on a sync.Mutex, NewSpin
// busy-waits on a SpinLock. Both expose the same contract as the lock-free
// variants; the discipline is a deployment decision, not a behavioral one.
type Locked struct {
	mu sync.Locker
	s  *Serial
}

// NewMutex returns a mutex-guarded bitmap.
func NewMutex(numSlots uint32, useHint bool) (*Locked, error) {
	s, err := NewSerial(numSlots, useHint)
	if err != nil {
		return nil, err
	}
	return &Locked{mu: &sync.Mutex{}, s: s}, nil
}

// NewSpin returns a spinlock-guarded bitmap.
func NewSpin(numSlots uint32, useHint bool) (*Locked, error) {
	s, err := NewSerial(numSlots, useHint)
	if err != nil {
		return nil, err
	}
	return &Locked{mu: &SpinLock{}, s: s}, nil
}

// AllocateOne claims one free slot under the lock.
func (l *Locked) AllocateOne() (uint32, bool) {
	l.mu.Lock()
	slot, ok := l.s.AllocateOne()
	l.mu.Unlock()
	return slot, ok
}

// FreeSlot releases a slot under the lock. Double and out-of-range frees
// are no-ops returning false.
func (l *Locked) FreeSlot(slot uint32) bool {
	l.mu.Lock()
	ok := l.s.FreeSlot(slot)
	l.mu.Unlock()
	return ok
}

// NumSlots returns the slot capacity.
func (l *Locked) NumSlots() uint32 { return l.s.NumSlots() }

// Words returns a copy of the word array taken under the lock.
func (l *Locked) Words() []uint64 {
	l.mu.Lock()
	w := l.s.Words()
	l.mu.Unlock()
	return w
}
