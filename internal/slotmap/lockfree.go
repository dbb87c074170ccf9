package slotmap

import "sync/atomic"

// LockFree is a bitmap whose slots are claimed with per-word
// compare-and-swap. Allocation never blocks: a failed CAS reloads the word
// and retries while it still has free bits, counting each failure. Frees
// are a single atomic OR and need no retry loop.
//
// A free is a release and the claiming CAS an acquire, so writes into a
// slot's memory made before FreeSlot are visible to the goroutine whose
// AllocateOne re-claims that slot. There is no ordering across distinct
// slots or words; only the claim of a single bit is atomic and exclusive.
type LockFree struct {
	numSlots uint32
	words    []atomic.Uint64
	retries  atomic.Uint64
}

// NewLockFree creates a fully free lock-free bitmap.
func NewLockFree(numSlots uint32) (*LockFree, error) {
	b := &LockFree{}
	if err := b.init(numSlots); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LockFree) init(numSlots uint32) error {
	n, err := numWords(numSlots)
	if err != nil {
		return err
	}
	b.numSlots = numSlots
	b.words = make([]atomic.Uint64, n)
	for i := range b.words {
		b.words[i].Store(fullyFree)
	}
	return nil
}

// tryWord attempts to claim the highest free bit of word w, retrying the
// CAS while the word still has free bits. ok is false once the word is
// observed fully allocated.
func (b *LockFree) tryWord(w int) (uint32, bool) {
	observed := b.words[w].Load()
	for observed != fullyAllocated {
		bit := highestFreeBit(observed)
		if b.words[w].CompareAndSwap(observed, observed&^(1<<bit)) {
			return slotIndex(w, bit), true
		}
		// Lost the race on this word. The reloaded value may still have
		// free bits (another goroutine claimed ours) or be fully
		// allocated, which ends the loop.
		b.retries.Add(1)
		observed = b.words[w].Load()
	}
	return 0, false
}

// AllocateOne scans all words in index order, claiming via CAS.
func (b *LockFree) AllocateOne() (uint32, bool) {
	for w := range b.words {
		if slot, ok := b.tryWord(w); ok {
			return slot, true
		}
	}
	return 0, false
}

// FreeSlot sets the slot's bit with one atomic OR. The pre-OR value tells
// whether the slot was actually allocated: freeing an already-free slot is
// a no-op returning false.
func (b *LockFree) FreeSlot(slot uint32) bool {
	if slot >= b.numSlots {
		return false
	}
	w, bit := wordAndBit(slot)
	mask := uint64(1) << bit
	return b.words[w].Or(mask)&mask == 0
}

// NumSlots returns the slot capacity.
func (b *LockFree) NumSlots() uint32 { return b.numSlots }

// Retries returns the cumulative count of failed CAS attempts.
func (b *LockFree) Retries() uint64 { return b.retries.Load() }

// Words returns a copy of the word array, loaded word by word.
func (b *LockFree) Words() []uint64 {
	out := make([]uint64, len(b.words))
	for i := range b.words {
		out[i] = b.words[i].Load()
	}
	return out
}

// LockFreeHint rotates each allocation's scan start using a shared
// fetch-add counter, spreading concurrent allocators across words to cut
// contention on the low words. The counter is approximate by design: it
// carries no correctness obligation, and no fairness guarantee exists under
// adversarial wrap interleavings. Frees do not touch it.
type LockFreeHint struct {
	LockFree
	nwords int
	isPow2 bool
	hint   atomic.Uint64
}

// NewLockFreeHint creates a fully free lock-free bitmap with a rotating
// scan-start hint.
func NewLockFreeHint(numSlots uint32) (*LockFreeHint, error) {
	b := &LockFreeHint{}
	if err := b.init(numSlots); err != nil {
		return nil, err
	}
	b.nwords = len(b.words)
	b.isPow2 = b.nwords&(b.nwords-1) == 0
	return b, nil
}

// AllocateOne picks a start word from the shared counter, scans to the end,
// then wraps around to the start word.
func (b *LockFreeHint) AllocateOne() (uint32, bool) {
	old := b.hint.Add(1) - 1
	var start int
	if b.isPow2 {
		start = int(old & uint64(b.nwords-1))
	} else {
		start = int(old % uint64(b.nwords))
	}

	for w := start; w < b.nwords; w++ {
		if slot, ok := b.tryWord(w); ok {
			return slot, true
		}
	}
	for w := 0; w < start; w++ {
		if slot, ok := b.tryWord(w); ok {
			return slot, true
		}
	}
	return 0, false
}
