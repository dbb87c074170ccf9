package slotarena

import (
	"errors"
	"sync/atomic"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// The hooks run on the allocation hot path, so implementations should be
// counter increments, not I/O. Durations are deliberately not reported:
// allocate and free complete in nanoseconds and timing them would cost more
// than the operations themselves.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocCounter  prometheus.Counter
//	    rejectCounter prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordAllocate(err error) {
//	    if err != nil {
//	        p.rejectCounter.Inc()
//	        return
//	    }
//	    p.allocCounter.Inc()
//	}
type MetricsCollector interface {
	// RecordAllocate is called after each allocation attempt.
	// err is nil on success, or one of ErrArenaFull, ErrRequestTooLarge,
	// ErrClosed describing the rejection.
	RecordAllocate(err error)

	// RecordFree is called after each free attempt.
	// err is nil on success, or one of ErrInvalidFree, ErrDoubleFree,
	// ErrClosed describing why the free was ignored.
	RecordFree(err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAllocate(error) {}
func (NoopMetricsCollector) RecordFree(error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocateCount    atomic.Int64
	AllocateFull     atomic.Int64
	AllocateOversize atomic.Int64
	FreeCount        atomic.Int64
	FreeInvalid      atomic.Int64
	FreeDouble       atomic.Int64
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(err error) {
	b.AllocateCount.Add(1)
	switch {
	case err == nil:
	case errors.Is(err, ErrArenaFull):
		b.AllocateFull.Add(1)
	case errors.Is(err, ErrRequestTooLarge):
		b.AllocateOversize.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(err error) {
	b.FreeCount.Add(1)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidFree):
		b.FreeInvalid.Add(1)
	case errors.Is(err, ErrDoubleFree):
		b.FreeDouble.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocateCount:    b.AllocateCount.Load(),
		AllocateFull:     b.AllocateFull.Load(),
		AllocateOversize: b.AllocateOversize.Load(),
		FreeCount:        b.FreeCount.Load(),
		FreeInvalid:      b.FreeInvalid.Load(),
		FreeDouble:       b.FreeDouble.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocateCount    int64
	AllocateFull     int64
	AllocateOversize int64
	FreeCount        int64
	FreeInvalid      int64
	FreeDouble       int64
}
