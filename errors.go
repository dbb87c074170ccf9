package slotarena

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned when the requested capacity is not positive.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrInvalidSlotSize is returned when the slot size is not positive.
	ErrInvalidSlotSize = errors.New("slot size must be positive")

	// ErrClosed is reported when an operation runs against a closed arena.
	ErrClosed = errors.New("arena is closed")
)

// Rejection and anomaly reasons. Allocate and Free stay silent on the hot
// path (nil slice, no-op), so these sentinels are never returned to callers;
// they are handed to the metrics collector and the anomaly log hooks to make
// the reason observable.
var (
	// ErrArenaFull reports an allocation attempt with no free slot left.
	ErrArenaFull = errors.New("arena is full")

	// ErrRequestTooLarge reports an allocation that does not fit exactly one slot.
	ErrRequestTooLarge = errors.New("request does not fit exactly one slot")

	// ErrInvalidFree reports a free of a buffer the arena does not own,
	// a misaligned buffer, or a buffer spanning more than one slot.
	ErrInvalidFree = errors.New("invalid free")

	// ErrDoubleFree reports a free of a slot that is already free.
	ErrDoubleFree = errors.New("double free")
)

// ErrRegionReserve indicates that the backing memory region could not be
// obtained, either from the operating system or from the memory budget.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrRegionReserve struct {
	Bytes int
	cause error
}

func (e *ErrRegionReserve) Error() string {
	return fmt.Sprintf("region reserve failed: %d bytes", e.Bytes)
}

func (e *ErrRegionReserve) Unwrap() error { return e.cause }

// ErrUnknownVariant indicates an unrecognized bitmap variant name.
type ErrUnknownVariant struct {
	Name string
}

func (e *ErrUnknownVariant) Error() string {
	return fmt.Sprintf("unknown variant: %q", e.Name)
}
