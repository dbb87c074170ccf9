// Package slotmap implements the slot-occupancy bitmaps behind the arena
// allocator.
//
// Convention: bit = 1 means the slot is free, bit = 0 means allocated. A
// slot index maps to (slot>>6, slot&63) and back; every variant claims the
// highest-order free bit of a candidate word, so allocation order within a
// fresh word is MSB-first (63, 62, 61, ...).
//
// Serial is the single-threaded core. Locked wraps it behind a sync.Locker
// (mutex or spinlock). LockFree and LockFreeHint synchronize per word with
// compare-and-swap and never block.
package slotmap

import (
	"errors"
	"math/bits"
)

const (
	wordShift = 6
	wordBits  = 64
	wordMask  = 63

	fullyAllocated = uint64(0)
	fullyFree      = ^uint64(0)
)

// ErrInvalidSlotCount is returned when the requested slot count is not a
// positive multiple of 64.
var ErrInvalidSlotCount = errors.New("slotmap: slot count must be a positive multiple of 64")

// Bitmap is the slot-occupancy contract shared by all concurrency variants.
//
// AllocateOne claims one free slot and returns its index; ok is false when
// every slot is allocated. FreeSlot releases a slot and reports whether it
// was actually allocated; freeing an already-free or out-of-range slot is a
// no-op returning false. Words returns a point-in-time copy of the word
// array; under concurrency only per-word consistency is promised.
type Bitmap interface {
	AllocateOne() (uint32, bool)
	FreeSlot(slot uint32) bool
	NumSlots() uint32
	Words() []uint64
}

// RetryCounter is implemented by the lock-free variants and exposes the
// cumulative number of failed CAS attempts. The count is monotonically
// non-decreasing and purely diagnostic.
type RetryCounter interface {
	Retries() uint64
}

var (
	_ Bitmap = (*Serial)(nil)
	_ Bitmap = (*Locked)(nil)
	_ Bitmap = (*LockFree)(nil)
	_ Bitmap = (*LockFreeHint)(nil)

	_ RetryCounter = (*LockFree)(nil)
	_ RetryCounter = (*LockFreeHint)(nil)
)

func numWords(numSlots uint32) (int, error) {
	if numSlots == 0 || numSlots%wordBits != 0 {
		return 0, ErrInvalidSlotCount
	}
	return int(numSlots / wordBits), nil
}

// wordAndBit splits a slot index into its word index and bit offset.
func wordAndBit(slot uint32) (int, uint) {
	return int(slot >> wordShift), uint(slot & wordMask)
}

// slotIndex is the inverse of wordAndBit.
func slotIndex(word int, bit uint) uint32 {
	return uint32(word)<<wordShift | uint32(bit)
}

// highestFreeBit returns the offset of the highest-order set bit.
// word must be non-zero.
func highestFreeBit(word uint64) uint {
	return uint(wordMask - bits.LeadingZeros64(word))
}
