package slotarena

import (
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
)

// Snapshot returns the currently allocated slot indexes as a Roaring bitmap.
//
// The snapshot is built word by word, so it is internally consistent per 64
// slots but only approximate across words while allocations and frees are in
// flight. It is meant for occupancy monitoring and trace capture, not for
// correctness decisions. A closed arena yields an empty bitmap.
func (a *Arena) Snapshot() *roaring.Bitmap {
	rb := roaring.New()
	if a.closed.Load() {
		return rb
	}

	for w, word := range a.bitmap.Words() {
		// A set bit marks a free slot; walk the complement.
		for allocated := ^word; allocated != 0; allocated &= allocated - 1 {
			bit := uint32(bits.TrailingZeros64(allocated))
			rb.Add(uint32(w)<<6 | bit)
		}
	}

	return rb
}
