package slotarena

import (
	"log/slog"

	"github.com/hupe1980/slotarena/internal/resource"
)

type options struct {
	variant          Variant
	metricsCollector MetricsCollector
	logger           *Logger
	acquirer         MemoryAcquirer
}

// Option configures Arena constructor behavior.
type Option func(*options)

// WithVariant selects the concurrency discipline of the slot bitmap.
//
// The default is VariantLockFreeHint, which scales best under contention.
// The locked variants exist for comparison and for platforms where CAS
// contention is pathological:
//
//   - VariantMutex / VariantMutexHint: predictable latency, kernel parking
//   - VariantSpin / VariantSpinHint: low latency under short critical
//     sections, burns CPU when contended
//   - VariantLockFree: progress without blocking, scans from word zero
//   - VariantLockFreeHint: adds a rotating start word to spread contention
//
// Benchmark your workload to find the best fit; the bench package compares
// all six under identical load.
func WithVariant(v Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &slotarena.BasicMetricsCollector{}
//	a, _ := slotarena.New(1<<20, 4096, slotarena.WithMetricsCollector(metrics))
//	// ... use a ...
//	stats := metrics.GetStats()
//	fmt.Printf("Allocations: %d, full: %d\n", stats.AllocateCount, stats.AllocateFull)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for lifecycle events and free
// anomalies. Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := slotarena.NewJSONLogger(slog.LevelInfo)
//	a, _ := slotarena.New(1<<20, 4096, slotarena.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMemoryAcquirer configures an external budget for the arena's backing
// region. The acquirer is consulted once at construction for the full
// (rounded) capacity and released once on Close.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// WithMemoryLimit enforces a hard budget on the backing region using an
// internal resource controller. Convenience wrapper for WithMemoryAcquirer;
// use a shared resource.Controller instead when several arenas must fit one
// budget.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.acquirer = resource.NewController(resource.Config{MemoryLimitBytes: bytes})
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		variant:          VariantLockFreeHint,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
