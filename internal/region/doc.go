// Package region provides anonymous memory reservations for off-heap
// allocation.
//
// # Overview
//
// A Region is a single contiguous range of demand-paged memory obtained
// directly from the operating system, outside the Go garbage collector's
// control. The slot arena carves fixed-size slots out of one Region, so
// its backing store never moves and never triggers GC scans.
//
// # Usage
//
//	r, err := region.Reserve(64 << 20)
//	if err != nil { ... }
//	defer r.Release()
//
//	// Direct access to the reserved range
//	buf := r.Bytes()
//
//	// Provide kernel hints for access patterns
//	r.Advise(region.AccessRandom)
//
// # Platform Support
//
// The package provides a unified API across platforms:
//
//   - Unix (Linux, macOS, BSD): Uses anonymous private mmap(2) with
//     madvise(2) for access hints
//   - Windows: Uses VirtualAlloc/VirtualFree (madvise is a no-op)
//
// # Thread Safety
//
// Region is safe for concurrent access to Bytes(). The Release() method is
// idempotent and protected by atomic operations. However, callers must
// ensure no goroutines access Bytes() after Release() returns.
package region
