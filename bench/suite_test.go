package bench

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/slotarena"
)

func TestSuiteRun(t *testing.T) {
	assert := assert.New(t)
	s := &Suite{
		Capacity: 4096,
		SlotSize: 64, // 64 slots
		Threads:  2,
		Ops:      50,
		Variants: []slotarena.Variant{slotarena.VariantMutex, slotarena.VariantLockFreeHint},
	}
	assert.Equal(4, s.NumWorkloads())

	obs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 4)

	wantPhases := []string{"fill", "churn", "fill", "churn"}
	wantVariants := []string{"mutex", "mutex", "lockfree+hint", "lockfree+hint"}
	for i, o := range obs {
		assert.NoError(o.Values.Validate())
		assert.NoError(o.Config.Validate())
		assert.Equal(wantPhases[i], o.Config["phase"])
		assert.Equal(wantVariants[i], o.Config["variant"])
		assert.Equal(float64(2), o.Config["threads"])
		assert.Equal(float64(4096), o.Config["capacity"])
		assert.Equal(float64(64), o.Config["slot_size"])

		dur, ok := o.Values["duration_ns"].(float64)
		assert.True(ok)
		assert.Greater(dur, float64(0))
	}

	// Fill: 2 goroutines x 33 attempts against 64 slots. The arena only
	// fills, so every slot is claimed exactly once and the rest reject.
	fill := obs[0].Values
	assert.Equal(float64(64), fill["slots"])
	assert.Equal(float64(64), fill["allocs"])
	assert.Equal(float64(66), fill["allocs"].(float64)+fill["rejects"].(float64))
	assert.Equal(float64(0), fill["cas_retries"], "mutex variant never retries")

	// Churn: half occupancy leaves headroom for every thread, so no
	// allocate/free pair can fail.
	churn := obs[1].Values
	assert.Equal(float64(100), churn["ops"])
	assert.Equal(float64(0), churn["failures"])
	assert.GreaterOrEqual(churn["lat_max_ns"].(float64), churn["lat_min_ns"].(float64))
}

func TestSuiteRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Suite{
		Capacity: 4096,
		SlotSize: 64,
		Threads:  2,
		Variants: []slotarena.Variant{slotarena.VariantMutex},
	}
	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuiteTrace(t *testing.T) {
	assert := assert.New(t)

	var b bytes.Buffer
	tw := NewTraceWriter(&b, CompressionLZ4)
	s := &Suite{
		Capacity: 4096,
		SlotSize: 64,
		Threads:  2,
		Ops:      20,
		Variants: []slotarena.Variant{slotarena.VariantLockFree},
		Trace:    tw,
		// Long enough that only the guaranteed start/stop snapshots fire.
		TraceInterval: time.Hour,
	}
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	snaps, err := NewTraceReader(&b, CompressionLZ4).ReadAll()
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	// Churn pre-fills half the slots and frees everything else it touches,
	// so both snapshots see exactly the held half.
	assert.Equal(uint64(32), snaps[0].GetCardinality())
	assert.Equal(uint64(32), snaps[1].GetCardinality())
}

func TestSuiteProgress(t *testing.T) {
	calls := 0
	s := &Suite{
		Capacity: 4096,
		SlotSize: 64,
		Threads:  1,
		Ops:      10,
		Iters:    2,
		Variants: []slotarena.Variant{slotarena.VariantSpin},
		Progress: func() { calls++ },
	}
	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.NumWorkloads(), calls)
}

func TestSuitePhases(t *testing.T) {
	assert := assert.New(t)
	s := &Suite{
		Capacity: 4096,
		SlotSize: 64,
		Threads:  1,
		Ops:      10,
		Variants: []slotarena.Variant{slotarena.VariantMutexHint},
		Phases:   []string{"churn"},
	}
	assert.Equal(1, s.NumWorkloads())

	obs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal("churn", obs[0].Config["phase"])

	s.Phases = []string{"warmup"}
	_, err = s.Run(context.Background())
	assert.ErrorContains(err, "unknown phase")
}

func TestNumWorkloadsDefaults(t *testing.T) {
	s := &Suite{Capacity: 4096, SlotSize: 64}
	assert.Equal(t, 2*len(slotarena.Variants()), s.NumWorkloads())

	s.Iters = 3
	s.Variants = []slotarena.Variant{slotarena.VariantMutex, slotarena.VariantSpin}
	assert.Equal(t, 12, s.NumWorkloads())
}

func TestSummarize(t *testing.T) {
	assert := assert.New(t)
	obs := []Observation{
		{
			Values: KeyValue{"duration_ns": float64(100), "allocs_per_sec": float64(10), "cas_retries": float64(4)},
			Config: KeyValue{"variant": "mutex", "phase": "fill"},
		},
		{
			Values: KeyValue{"duration_ns": float64(200), "ops_per_sec": float64(5)},
			Config: KeyValue{"variant": "mutex", "phase": "churn"},
		},
		{
			Values: KeyValue{"duration_ns": float64(300), "allocs_per_sec": float64(20), "cas_retries": float64(0)},
			Config: KeyValue{"variant": "mutex", "phase": "fill"},
		},
	}

	sums := Summarize(obs)
	require.Len(t, sums, 2)

	fill := sums[0]
	assert.Equal("mutex", fill.Variant)
	assert.Equal("fill", fill.Phase)
	assert.Equal(2, fill.Runs)
	assert.Equal(float64(100), fill.MinNanos)
	assert.Equal(float64(200), fill.AvgNanos)
	assert.Equal(float64(300), fill.MaxNanos)
	assert.Equal(float64(15), fill.OpsPerSec)
	assert.Equal(float64(2), fill.CASRetries)

	churn := sums[1]
	assert.Equal("churn", churn.Phase)
	assert.Equal(1, churn.Runs)
	assert.Equal(float64(200), churn.MinNanos)
	assert.Equal(float64(5), churn.OpsPerSec)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
