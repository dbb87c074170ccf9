// Package resource tracks and limits off-heap memory reserved by arenas.
//
// Arena backing regions live outside the Go heap, so the runtime's own
// memory accounting never sees them. The Controller provides a process-wide
// budget for these reservations: a hard limit enforced by a weighted
// semaphore plus an atomic usage counter.
//
// # Memory Management
//
// AcquireMemory is non-blocking and returns immediately with
// ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB budget
//	})
//
//	if err := rc.AcquireMemory(ctx, 256<<20); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides retry/backoff
//	}
//	defer rc.ReleaseMemory(256 << 20)
//
// Arenas reserve their whole region at construction and release it on
// close, so the controller sees exactly one acquire/release pair per
// arena lifetime.
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
