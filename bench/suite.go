package bench

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/slotarena"
)

// Suite drives identical allocation load against every configured arena
// variant and records one Observation per workload.
//
// Two phases are measured:
//
//   - fill: Threads goroutines race Allocate until the arena is full or the
//     per-goroutine attempt budget is spent. With enough attempts the total
//     success count equals the slot count, whatever the interleaving.
//   - churn: half the slots are pre-filled, then each goroutine runs
//     allocate/free pairs against the remaining headroom, optionally
//     rate-limited.
type Suite struct {
	Capacity int
	SlotSize int
	Threads  int // defaults to GOMAXPROCS
	Attempts int // fill: attempts per goroutine; 0 = enough to cover all slots
	Ops      int // churn: allocate/free pairs per goroutine; 0 = 10000
	Iters    int // repetitions per variant; 0 = 1

	// Randomize shuffles workload order so slow drift (thermal, caches)
	// spreads across variants instead of biasing the last one.
	Randomize bool

	// Variants lists the bitmap disciplines to compare; nil = all.
	Variants []slotarena.Variant

	// Phases selects which phases run ("fill", "churn"); nil = both.
	Phases []string

	// Rate limits churn operations per second across each workload.
	// 0 = unlimited.
	Rate rate.Limit

	// Trace, when set, receives occupancy snapshots during churn phases.
	Trace *TraceWriter
	// TraceInterval is the snapshot period; 0 = 50ms.
	TraceInterval time.Duration

	// Progress, when set, is called once per completed workload.
	Progress func()
}

type workload struct {
	variant slotarena.Variant
	phase   string
	iter    int
}

func (s *Suite) phases() []string {
	if len(s.Phases) == 0 {
		return []string{"fill", "churn"}
	}
	return s.Phases
}

// NumWorkloads returns how many workloads Run will execute, for sizing
// progress reporting.
func (s *Suite) NumWorkloads() int {
	iters := s.Iters
	if iters <= 0 {
		iters = 1
	}
	variants := s.Variants
	if len(variants) == 0 {
		variants = slotarena.Variants()
	}
	return len(s.phases()) * iters * len(variants)
}

// Run executes all workloads and returns their observations.
func (s *Suite) Run(ctx context.Context) ([]Observation, error) {
	threads := s.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	iters := s.Iters
	if iters <= 0 {
		iters = 1
	}
	variants := s.Variants
	if len(variants) == 0 {
		variants = slotarena.Variants()
	}

	var ws []workload
	for i := 0; i < iters; i++ {
		for _, v := range variants {
			for _, phase := range s.phases() {
				ws = append(ws, workload{variant: v, phase: phase, iter: i})
			}
		}
	}
	if s.Randomize {
		rand.Shuffle(len(ws), func(i, j int) {
			ws[i], ws[j] = ws[j], ws[i]
		})
	}

	var obs []Observation
	for _, w := range ws {
		var (
			values KeyValue
			err    error
		)
		switch w.phase {
		case "fill":
			values, err = s.runFill(ctx, w.variant, threads)
		case "churn":
			values, err = s.runChurn(ctx, w.variant, threads)
		default:
			err = fmt.Errorf("unknown phase %q", w.phase)
		}
		if err != nil {
			return obs, fmt.Errorf("%s %s iter %d: %w", w.variant, w.phase, w.iter, err)
		}

		obs = append(obs, Observation{
			Values: values,
			Config: KeyValue{
				"phase":     w.phase,
				"variant":   w.variant.String(),
				"capacity":  float64(s.Capacity),
				"slot_size": float64(s.SlotSize),
				"threads":   float64(threads),
				"iter":      float64(w.iter),
			},
		})
		if s.Progress != nil {
			s.Progress()
		}
	}
	return obs, nil
}

// runFill races Allocate across threads until the arena is exhausted.
func (s *Suite) runFill(ctx context.Context, v slotarena.Variant, threads int) (KeyValue, error) {
	a, err := slotarena.New(s.Capacity, s.SlotSize, slotarena.WithVariant(v))
	if err != nil {
		return nil, err
	}
	defer a.Close()

	attempts := s.Attempts
	if attempts <= 0 {
		attempts = int(a.NumSlots())/threads + 1
	}

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for t := 0; t < threads; t++ {
		g.Go(func() error {
			for i := 0; i < attempts; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				a.Allocate(s.SlotSize)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	stats := a.Stats()
	return KeyValue{
		"duration_ns":    float64(elapsed.Nanoseconds()),
		"allocs":         float64(stats.Allocations),
		"rejects":        float64(stats.Rejections),
		"slots":          float64(a.NumSlots()),
		"allocs_per_sec": perSec(stats.Allocations, elapsed),
		"cas_retries":    float64(stats.CASRetries),
	}, nil
}

// runChurn measures steady-state allocate/free pairs at half occupancy.
func (s *Suite) runChurn(ctx context.Context, v slotarena.Variant, threads int) (KeyValue, error) {
	a, err := slotarena.New(s.Capacity, s.SlotSize, slotarena.WithVariant(v))
	if err != nil {
		return nil, err
	}
	defer a.Close()

	ops := s.Ops
	if ops <= 0 {
		ops = 10000
	}

	// Pre-fill half the slots so churn runs against realistic occupancy.
	held := int(a.NumSlots()) / 2
	for i := 0; i < held; i++ {
		if a.Allocate(s.SlotSize) == nil {
			return nil, fmt.Errorf("pre-fill allocation %d failed", i)
		}
	}
	baseRetries := a.CASRetries()

	var limiter *rate.Limiter
	if s.Rate > 0 {
		limiter = rate.NewLimiter(s.Rate, threads)
	}

	stopTrace := s.startTrace(a)
	defer stopTrace()

	var (
		mu       sync.Mutex
		failures int64
		minNanos = int64(1<<63 - 1)
		maxNanos int64
		sumNanos int64
		done     int64
	)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for t := 0; t < threads; t++ {
		g.Go(func() error {
			var (
				localFail int64
				localMin  = int64(1<<63 - 1)
				localMax  int64
				localSum  int64
				localDone int64
			)
			for i := 0; i < ops; i++ {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				} else if err := ctx.Err(); err != nil {
					return err
				}

				opStart := time.Now()
				buf := a.Allocate(s.SlotSize)
				if buf == nil {
					localFail++
					continue
				}
				buf[0] = byte(i)
				a.Free(buf)
				opNanos := time.Since(opStart).Nanoseconds()

				localDone++
				localSum += opNanos
				if opNanos < localMin {
					localMin = opNanos
				}
				if opNanos > localMax {
					localMax = opNanos
				}
			}

			mu.Lock()
			failures += localFail
			done += localDone
			sumNanos += localSum
			if localDone > 0 && localMin < minNanos {
				minNanos = localMin
			}
			if localMax > maxNanos {
				maxNanos = localMax
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	avgNanos := float64(0)
	if done > 0 {
		avgNanos = float64(sumNanos) / float64(done)
	}
	if done == 0 {
		minNanos = 0
	}

	return KeyValue{
		"duration_ns": float64(elapsed.Nanoseconds()),
		"ops":         float64(done),
		"failures":    float64(failures),
		"ops_per_sec": perSec(done, elapsed),
		"lat_min_ns":  float64(minNanos),
		"lat_avg_ns":  avgNanos,
		"lat_max_ns":  float64(maxNanos),
		"cas_retries": float64(a.CASRetries() - baseRetries),
	}, nil
}

// startTrace snapshots occupancy periodically until the returned stop
// function runs. A final snapshot is always taken at stop.
func (s *Suite) startTrace(a *slotarena.Arena) func() {
	if s.Trace == nil {
		return func() {}
	}

	interval := s.TraceInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	_ = s.Trace.WriteSnapshot(a.Snapshot())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = s.Trace.WriteSnapshot(a.Snapshot())
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
		_ = s.Trace.WriteSnapshot(a.Snapshot())
	}
}

func perSec(n int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

// Summary aggregates the observations of one (variant, phase) group across
// iterations.
type Summary struct {
	Variant    string
	Phase      string
	Runs       int
	MinNanos   float64
	AvgNanos   float64
	MaxNanos   float64
	OpsPerSec  float64
	CASRetries float64
}

// Summarize groups observations by variant and phase and reduces their
// durations to min/avg/max, with throughput and CAS retries averaged.
func Summarize(obs []Observation) []Summary {
	type key struct {
		variant string
		phase   string
	}

	groups := make(map[key]*Summary)
	var order []key
	for _, o := range obs {
		variant, _ := o.Config["variant"].(string)
		phase, _ := o.Config["phase"].(string)
		k := key{variant, phase}

		s, ok := groups[k]
		if !ok {
			s = &Summary{Variant: variant, Phase: phase}
			groups[k] = s
			order = append(order, k)
		}

		dur, _ := o.Values["duration_ns"].(float64)
		if s.Runs == 0 || dur < s.MinNanos {
			s.MinNanos = dur
		}
		if dur > s.MaxNanos {
			s.MaxNanos = dur
		}
		s.AvgNanos += dur

		if ops, ok := o.Values["ops_per_sec"].(float64); ok {
			s.OpsPerSec += ops
		} else if ops, ok := o.Values["allocs_per_sec"].(float64); ok {
			s.OpsPerSec += ops
		}
		if r, ok := o.Values["cas_retries"].(float64); ok {
			s.CASRetries += r
		}
		s.Runs++
	}

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		s := groups[k]
		if s.Runs > 0 {
			s.AvgNanos /= float64(s.Runs)
			s.OpsPerSec /= float64(s.Runs)
			s.CASRetries /= float64(s.Runs)
		}
		out = append(out, *s)
	}
	return out
}
