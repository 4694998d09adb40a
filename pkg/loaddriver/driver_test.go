package loaddriver

import (
	"context"
	"sync/atomic"
	"time"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirbench/fhirbench/pkg/probe"
	"github.com/fhirbench/fhirbench/pkg/types"
)

// constantLatencyProber returns a fixed outcome after sleeping a fixed
// duration, mimicking a mock FHIR server with deterministic latency.
type constantLatencyProber struct {
	latency time.Duration
	calls   atomic.Int64
}

func (p *constantLatencyProber) Run(ctx context.Context, input probe.Input) types.IterationOutcome {
	p.calls.Add(1)
	select {
	case <-time.After(p.latency):
		return types.Succeeded(p.latency.Milliseconds())
	case <-ctx.Done():
		return types.Failed(types.FailureTransportError, p.latency.Milliseconds())
	}
}

// variableProber returns the caller-supplied outcome for the first call and
// a fast success thereafter, used to model the warm-up scenario.
type variableProber struct {
	first time.Duration
	rest  time.Duration
}

func (p *variableProber) Run(ctx context.Context, input probe.Input) types.IterationOutcome {
	d := p.rest
	if input.Index == 0 {
		d = p.first
	}
	select {
	case <-time.After(d):
		return types.Succeeded(d.Milliseconds())
	case <-ctx.Done():
		return types.Failed(types.FailureTimeout, d.Milliseconds())
	}
}

func TestRun_HappyPath(t *testing.T) {
	prober := &constantLatencyProber{latency: 10 * time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:  100,
		Concurrency: 1,
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, m.Metrics)

	assert.Equal(t, 100, m.IterationsSucceeded)
	assert.Equal(t, 0, m.IterationsFailed)
	assert.Equal(t, 0, m.IterationsSkipped)
	assert.InDelta(t, 10, m.Metrics.LatencyMillisP50, 2)
}

func TestRun_Timeouts(t *testing.T) {
	prober := &constantLatencyProber{latency: 200 * time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:  20,
		Concurrency: 4,
		Timeout:     50 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Nil(t, m.Metrics)
	assert.Equal(t, 20, m.IterationsFailed)
	assert.Equal(t, 0, m.IterationsSucceeded)
}

func TestRun_WarmupDiscardedFromHistogram(t *testing.T) {
	prober := &variableProber{first: 1000 * time.Millisecond, rest: 10 * time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:  100,
		Concurrency: 1,
		Timeout:     2 * time.Second,
		Warmup:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, m.Metrics)

	assert.Equal(t, 100, m.IterationsSucceeded)
	assert.LessOrEqual(t, m.Metrics.LatencyMillisP100, int64(15))
}

func TestRun_NoWarmupRunsAllIterationsThroughPool(t *testing.T) {
	prober := &variableProber{first: 1000 * time.Millisecond, rest: 10 * time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:  5,
		Concurrency: 1,
		Timeout:     2 * time.Second,
		Warmup:      false,
	})
	require.NoError(t, err)
	require.NotNil(t, m.Metrics)

	assert.Equal(t, 5, m.IterationsSucceeded)
	// index 0's slow outcome now goes through the pool and into the
	// histogram instead of being discarded, so the max latency reflects it.
	assert.GreaterOrEqual(t, m.Metrics.LatencyMillisP100, int64(900))
}

func TestRun_IterationConservation(t *testing.T) {
	prober := &constantLatencyProber{latency: 5 * time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:  50,
		Concurrency: 8,
		Timeout:     time.Second,
	})
	require.NoError(t, err)

	attempted := m.IterationsSucceeded + m.IterationsFailed + m.IterationsSkipped
	assert.LessOrEqual(t, attempted, 50)
	assert.Equal(t, 50, attempted)
}

func TestRun_WallClockBudgetProducesSkips(t *testing.T) {
	prober := &constantLatencyProber{latency: 100 * time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:      200,
		Concurrency:     1,
		Timeout:         time.Second,
		WallClockBudget: 150 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Greater(t, m.IterationsSkipped, 0)
	attempted := m.IterationsSucceeded + m.IterationsFailed + m.IterationsSkipped
	assert.Equal(t, 200, attempted)
}

func TestRun_ZeroIterationsIsNotAnError(t *testing.T) {
	prober := &constantLatencyProber{latency: time.Millisecond}

	m, err := Run(context.Background(), prober, Config{
		Iterations:  0,
		Concurrency: 1,
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	assert.Nil(t, m.Metrics)
}
