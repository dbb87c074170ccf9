package slotmap

// Serial is the single-threaded bitmap core. It performs no internal
// synchronization; concurrent callers must hold exclusion around every
// method (see Locked).
//
// With the hint enabled, scans resume from the word of the most recent claim
// or free instead of word zero. The hint is strictly an optimization: a
// stale value only lengthens the scan, it can never cause a missed or
// duplicated allocation.
type Serial struct {
	numSlots uint32
	words    []uint64
	useHint  bool
	hint     int
}

// NewSerial creates a fully free bitmap with numSlots slots.
// numSlots must be a positive multiple of 64.
func NewSerial(numSlots uint32, useHint bool) (*Serial, error) {
	n, err := numWords(numSlots)
	if err != nil {
		return nil, err
	}
	words := make([]uint64, n)
	for i := range words {
		words[i] = fullyFree
	}
	return &Serial{numSlots: numSlots, words: words, useHint: useHint}, nil
}

// AllocateOne claims the highest free bit of the first word that still has
// one, scanning from the hint and wrapping when hints are enabled.
func (s *Serial) AllocateOne() (uint32, bool) {
	start := 0
	if s.useHint {
		start = s.hint
	}
	for i := 0; i < len(s.words); i++ {
		w := start + i
		if w >= len(s.words) {
			w -= len(s.words)
		}
		if s.words[w] == fullyAllocated {
			continue
		}
		bit := highestFreeBit(s.words[w])
		s.words[w] &^= 1 << bit
		if s.useHint {
			// Resume the next scan here, or at the next word if this
			// claim took the word's last free bit.
			if s.words[w] == fullyAllocated {
				s.hint = (w + 1) % len(s.words)
			} else {
				s.hint = w
			}
		}
		return slotIndex(w, bit), true
	}
	return 0, false
}

// FreeSlot marks slot free again. Freeing a slot that is already free, or an
// out-of-range index, is a no-op returning false.
func (s *Serial) FreeSlot(slot uint32) bool {
	if slot >= s.numSlots {
		return false
	}
	w, bit := wordAndBit(slot)
	mask := uint64(1) << bit
	if s.words[w]&mask != 0 {
		return false
	}
	s.words[w] |= mask
	if s.useHint {
		s.hint = w
	}
	return true
}

// NumSlots returns the slot capacity.
func (s *Serial) NumSlots() uint32 { return s.numSlots }

// Words returns a copy of the word array.
func (s *Serial) Words() []uint64 {
	out := make([]uint64, len(s.words))
	copy(out, s.words)
	return out
}
