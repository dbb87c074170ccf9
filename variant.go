package slotarena

import (
	"github.com/hupe1980/slotarena/internal/slotmap"
)

// Variant selects the concurrency discipline of the arena's slot bitmap.
type Variant int

const (
	// VariantMutex guards a serial bitmap with a sync.Mutex.
	VariantMutex Variant = iota
	// VariantMutexHint is VariantMutex with a resume-point hint.
	VariantMutexHint
	// VariantSpin guards a serial bitmap with a test-and-set spinlock.
	VariantSpin
	// VariantSpinHint is VariantSpin with a resume-point hint.
	VariantSpinHint
	// VariantLockFree claims slots with CAS loops, scanning from word zero.
	VariantLockFree
	// VariantLockFreeHint is VariantLockFree with a rotating start word.
	VariantLockFreeHint
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case VariantMutex:
		return "mutex"
	case VariantMutexHint:
		return "mutex+hint"
	case VariantSpin:
		return "spin"
	case VariantSpinHint:
		return "spin+hint"
	case VariantLockFree:
		return "lockfree"
	case VariantLockFreeHint:
		return "lockfree+hint"
	default:
		return "unknown"
	}
}

// ParseVariant converts a variant name as printed by String back into a
// Variant. It returns an *ErrUnknownVariant for unrecognized names.
func ParseVariant(name string) (Variant, error) {
	for _, v := range Variants() {
		if v.String() == name {
			return v, nil
		}
	}
	return 0, &ErrUnknownVariant{Name: name}
}

// Variants returns all selectable variants in declaration order.
func Variants() []Variant {
	return []Variant{
		VariantMutex,
		VariantMutexHint,
		VariantSpin,
		VariantSpinHint,
		VariantLockFree,
		VariantLockFreeHint,
	}
}

func newBitmap(v Variant, numSlots uint32) (slotmap.Bitmap, error) {
	switch v {
	case VariantMutex:
		return slotmap.NewMutex(numSlots, false)
	case VariantMutexHint:
		return slotmap.NewMutex(numSlots, true)
	case VariantSpin:
		return slotmap.NewSpin(numSlots, false)
	case VariantSpinHint:
		return slotmap.NewSpin(numSlots, true)
	case VariantLockFree:
		return slotmap.NewLockFree(numSlots)
	case VariantLockFreeHint:
		return slotmap.NewLockFreeHint(numSlots)
	default:
		return nil, &ErrUnknownVariant{Name: v.String()}
	}
}
