package slotarena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/slotarena/internal/region"
	"github.com/hupe1980/slotarena/internal/slotmap"
)

// minSlots is the smallest slot count an arena is created with. Capacity is
// rounded up so the slot count is a multiple of 64, keeping the bitmap free
// of partial words.
const minSlots = 64

// MemoryAcquirer is an interface for acquiring memory against an external
// budget. It is satisfied by resource.Controller.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

// Arena hands out fixed-size slots carved from a single contiguous region of
// anonymous, off-heap memory. All methods are safe for concurrent use by
// multiple goroutines without external locking; the bitmap variant selected
// at construction decides how slot claims are synchronized.
//
// The returned buffers alias the arena's backing region. They stay valid
// until freed or until the arena is closed, whichever comes first. Close must
// not race with in-flight Allocate or Free calls.
type Arena struct {
	variant  Variant
	slotSize int
	capacity int
	numSlots uint32

	bitmap  slotmap.Bitmap
	retries slotmap.RetryCounter // nil for locked variants

	reg  *region.Region
	data []byte

	stats  atomicStats
	closed atomic.Bool

	acquirer MemoryAcquirer
	metrics  MetricsCollector
	logger   *Logger
}

// atomicStats carries the arena's lock-free counters. slotsInUse is
// approximate: it is incremented after a claim and decremented after a
// release, independently of the bitmap word mutation, so concurrent readers
// may observe it off by the number of in-flight operations.
type atomicStats struct {
	allocations  atomic.Int64
	rejections   atomic.Int64
	frees        atomic.Int64
	invalidFrees atomic.Int64
	doubleFrees  atomic.Int64
	slotsInUse   atomic.Int64
}

// Stats is a point-in-time snapshot of the arena's counters.
type Stats struct {
	Allocations  int64
	Rejections   int64
	Frees        int64
	InvalidFrees int64
	DoubleFrees  int64
	SlotsInUse   int64
	CASRetries   uint64
}

// New creates an arena of at least capacity bytes divided into slots of
// slotSize bytes each.
//
// The capacity is rounded up so the implied slot count is the smallest
// multiple of 64 covering the request (minimum 64); Capacity reports the
// rounded value. The whole backing region is reserved up front from the
// operating system and, if configured, charged against the memory budget.
func New(capacity, slotSize int, optFns ...Option) (*Arena, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if slotSize <= 0 {
		return nil, ErrInvalidSlotSize
	}

	o := applyOptions(optFns)

	n := int64(capacity) / int64(slotSize)
	if int64(capacity)%int64(slotSize) != 0 {
		n++
	}
	if n > math.MaxUint32-63 {
		return nil, fmt.Errorf("%w: %d bytes with slot size %d", ErrInvalidCapacity, capacity, slotSize)
	}
	n = (n + 63) &^ 63
	if n < minSlots {
		n = minSlots
	}
	if n > math.MaxInt64/int64(slotSize) {
		return nil, fmt.Errorf("%w: %d bytes with slot size %d", ErrInvalidCapacity, capacity, slotSize)
	}
	rounded := n * int64(slotSize)
	if rounded > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes with slot size %d", ErrInvalidCapacity, capacity, slotSize)
	}
	capacity = int(rounded)

	bitmap, err := newBitmap(o.variant, uint32(n))
	if err != nil {
		return nil, fmt.Errorf("create bitmap: %w", err)
	}

	if o.acquirer != nil {
		if err := o.acquirer.AcquireMemory(context.Background(), rounded); err != nil {
			return nil, &ErrRegionReserve{Bytes: capacity, cause: err}
		}
	}

	reg, err := region.Reserve(capacity)
	if err != nil {
		if o.acquirer != nil {
			o.acquirer.ReleaseMemory(rounded)
		}
		return nil, &ErrRegionReserve{Bytes: capacity, cause: err}
	}

	// Slot access is random by nature; tell the kernel not to read ahead.
	_ = reg.Advise(region.AccessRandom)

	a := &Arena{
		variant:  o.variant,
		slotSize: slotSize,
		capacity: capacity,
		numSlots: uint32(n),
		bitmap:   bitmap,
		reg:      reg,
		data:     reg.Bytes(),
		acquirer: o.acquirer,
		metrics:  o.metricsCollector,
		logger:   o.logger,
	}
	a.retries, _ = bitmap.(slotmap.RetryCounter)

	a.logger.LogCreate(context.Background(), a.variant, a.numSlots, a.slotSize, a.capacity)

	return a, nil
}

// Allocate claims one slot and returns a buffer of the requested size backed
// by it. It returns nil when the request is rejected: the arena is closed,
// size does not fit exactly one slot, or no slot is free. The rejection
// reason is observable via Stats and the metrics collector.
//
// The returned slice has length size and capacity slotSize; its first byte
// is the slot's address.
func (a *Arena) Allocate(size int) []byte {
	buf, err := a.allocate(size)
	a.metrics.RecordAllocate(err)
	if err != nil {
		a.stats.rejections.Add(1)
		return nil
	}
	a.stats.allocations.Add(1)
	return buf
}

func (a *Arena) allocate(size int) ([]byte, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if size <= 0 {
		return nil, ErrRequestTooLarge
	}
	if slotsRequired := (size + a.slotSize - 1) / a.slotSize; slotsRequired != 1 {
		return nil, ErrRequestTooLarge
	}

	slot, ok := a.bitmap.AllocateOne()
	if !ok {
		return nil, ErrArenaFull
	}
	a.stats.slotsInUse.Add(1)

	off := int(slot) * a.slotSize
	return a.data[off : off+size : off+a.slotSize], nil
}

// Free returns buf's slot to the arena. buf must be a slice handed out by
// Allocate (or a reslice sharing its first byte). Invalid frees (a buffer
// the arena does not own, a misaligned buffer, or one spanning more than a
// single slot) and double frees are silently ignored; both are observable
// via Stats and the metrics collector.
//
// The caller must not touch buf after Free returns.
func (a *Arena) Free(buf []byte) {
	err := a.free(buf)
	a.metrics.RecordFree(err)
	switch {
	case err == nil:
		a.stats.frees.Add(1)
	case errors.Is(err, ErrDoubleFree):
		a.stats.doubleFrees.Add(1)
		a.logger.LogFreeAnomaly(context.Background(), err)
	case errors.Is(err, ErrInvalidFree):
		a.stats.invalidFrees.Add(1)
		a.logger.LogFreeAnomaly(context.Background(), err)
	}
}

func (a *Arena) free(buf []byte) error {
	if a.closed.Load() {
		return ErrClosed
	}
	if len(buf) == 0 {
		return ErrInvalidFree
	}

	// Identify the slot by the buffer's address. Both pointers target the
	// mapped region, which the garbage collector never moves.
	base := uintptr(unsafe.Pointer(&a.data[0]))
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	if ptr < base || ptr >= base+uintptr(a.capacity) {
		return ErrInvalidFree
	}
	off := int(ptr - base)
	if off%a.slotSize != 0 {
		return ErrInvalidFree
	}
	if slots := (len(buf) + a.slotSize - 1) / a.slotSize; slots != 1 {
		return ErrInvalidFree
	}

	if !a.bitmap.FreeSlot(uint32(off / a.slotSize)) {
		return ErrDoubleFree
	}
	a.stats.slotsInUse.Add(-1)
	return nil
}

// CASRetries returns the cumulative number of failed CAS attempts since
// construction. It is monotonically non-decreasing, intended for contention
// diagnostics, and always 0 for the mutex and spinlock variants.
func (a *Arena) CASRetries() uint64 {
	if a.retries == nil {
		return 0
	}
	return a.retries.Retries()
}

// Close releases the backing region and the memory budget. It is idempotent.
// Operations on a closed arena are rejected: Allocate returns nil and Free
// is a no-op. Buffers handed out by Allocate must not be touched after Close.
func (a *Arena) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	err := a.reg.Release()
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(int64(a.capacity))
	}
	a.logger.LogClose(context.Background(), err)

	return err
}

// NumSlots returns the number of slots in the arena.
func (a *Arena) NumSlots() uint32 {
	return a.numSlots
}

// SlotSize returns the size of a single slot in bytes.
func (a *Arena) SlotSize() int {
	return a.slotSize
}

// Capacity returns the rounded total capacity in bytes.
func (a *Arena) Capacity() int {
	return a.capacity
}

// Variant returns the bitmap variant the arena was created with.
func (a *Arena) Variant() Variant {
	return a.variant
}

// SlotsInUse returns the approximate number of currently allocated slots.
func (a *Arena) SlotsInUse() int64 {
	return a.stats.slotsInUse.Load()
}

// Usage returns the approximate fraction of allocated slots in percent.
func (a *Arena) Usage() float64 {
	return float64(a.SlotsInUse()) / float64(a.numSlots) * 100
}

// Stats returns a snapshot of the arena's counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Allocations:  a.stats.allocations.Load(),
		Rejections:   a.stats.rejections.Load(),
		Frees:        a.stats.frees.Load(),
		InvalidFrees: a.stats.invalidFrees.Load(),
		DoubleFrees:  a.stats.doubleFrees.Load(),
		SlotsInUse:   a.stats.slotsInUse.Load(),
		CASRetries:   a.CASRetries(),
	}
}

// String implements fmt.Stringer.
func (a *Arena) String() string {
	return fmt.Sprintf("Arena{variant=%s, slots=%d, slotSize=%d, capacity=%d, inUse=%d}",
		a.variant, a.numSlots, a.slotSize, a.capacity, a.SlotsInUse())
}
