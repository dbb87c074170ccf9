// Package slotarena provides a fixed-size-slot memory allocator backed by a
// single contiguous off-heap region.
//
// An Arena reserves its whole capacity up front as anonymous, demand-paged
// memory outside the Go heap and carves it into equally sized slots. Slot
// occupancy lives in a bitmap whose concurrency discipline is selectable at
// construction: mutex, spinlock, or lock-free CAS, each with and without a
// scan-start hint. The allocator is built for buffer-pool style workloads
// such as page caches, frame tables, and connection buffers, where
// allocation must be predictable and free of garbage collector involvement.
//
// # Quick Start
//
//	a, err := slotarena.New(200<<20, 4096) // 200 MiB of 4 KiB slots
//	if err != nil {
//	    panic(err)
//	}
//	defer a.Close()
//
//	buf := a.Allocate(4096)
//	if buf == nil {
//	    // arena full, or the size does not fit one slot
//	}
//	// ... use buf ...
//	a.Free(buf)
//
// # Variants
//
// The bitmap variant is chosen with WithVariant:
//
//	a, _ := slotarena.New(200<<20, 4096,
//	    slotarena.WithVariant(slotarena.VariantLockFree))
//
// All variants share the same semantics: a slot is handed to exactly one
// caller, exhaustion rejects with nil, freed slots become reallocatable, and
// double frees are detected and ignored. They differ only in how claims are
// synchronized and therefore in throughput under contention. CASRetries
// exposes the contention the lock-free variants absorbed.
//
// # Observability
//
//   - Stats: lock-free counters for allocations, rejections, frees, invalid
//     frees, double frees, and slots in use
//   - MetricsCollector: pluggable per-operation hooks (see WithMetricsCollector)
//   - Logger: structured slog-based logging of lifecycle events and free
//     anomalies (see WithLogger)
//   - Snapshot: Roaring bitmap of allocated slot indexes
//
// # Memory Budget
//
// Arenas can share a process-wide budget for their off-heap reservations:
//
//	a, err := slotarena.New(1<<30, 4096,
//	    slotarena.WithMemoryLimit(2<<30))
//
// Construction fails with *ErrRegionReserve when the budget or the operating
// system refuses the reservation.
//
// # Benchmarking
//
// The bench package drives all six variants under identical fill and churn
// load and records observations for comparison; the slotbench command wraps
// it as a CLI.
package slotarena
