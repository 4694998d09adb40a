package loaddriver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fhirbench/fhirbench/pkg/probe"
	"github.com/fhirbench/fhirbench/pkg/recorder"
	"github.com/fhirbench/fhirbench/pkg/types"
)

// Prober is the subset of *probe.Probe the driver needs, narrowed to an
// interface so tests can substitute a fake without standing up an HTTP
// server.
type Prober interface {
	Run(ctx context.Context, input probe.Input) types.IterationOutcome
}

// Config parametrises one measurement: how many iterations to attempt, at
// what concurrency, bounded by what per-iteration timeout, with an optional
// wall-clock ceiling on the whole measurement.
type Config struct {
	Iterations      int
	Concurrency     int
	Timeout         time.Duration
	WallClockBudget time.Duration // 0 disables the ceiling
	CeilingMillis   int64         // histogram ceiling; 0 uses recorder.DefaultCeilingMillis

	// Warmup, when true, runs iteration 0 serially outside the worker pool
	// and discards its latency from the histogram/mean. This must only be
	// set for the very first measurement taken against a freshly launched
	// server, never for every Run call — the caller (the coordinator, via
	// lifecycle.Controller.NeedsWarmup) is responsible for scoping it.
	Warmup bool
}

// Run drives up to cfg.Iterations iterations of prober at cfg.Concurrency and
// returns the sealed Measurement. When cfg.Warmup is set, iteration 0 runs
// serially outside the worker pool first and its latency is discarded from
// the histogram/mean — callers must reserve this for the very first
// measurement against a freshly launched server, not every call. ctx
// cancellation (e.g. SIGINT) is honoured cooperatively: workers stop pulling
// new tickets and in-flight work is cancelled, with whatever was not
// attempted recorded as skipped rather than failed.
func Run(ctx context.Context, prober Prober, cfg Config) (types.Measurement, error) {
	ceiling := cfg.CeilingMillis
	if ceiling <= 0 {
		ceiling = recorder.DefaultCeilingMillis
	}
	rec := recorder.New(ceiling)
	started := types.Now()

	runCtx := ctx
	if cfg.WallClockBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.WallClockBudget)
		defer cancel()
	}

	n := cfg.Iterations
	if n <= 0 {
		completed := types.Now()
		return rec.Finalise(started, completed, cfg.Concurrency)
	}

	runOne := func(taskCtx context.Context, index int) types.IterationOutcome {
		iterCtx, cancel := context.WithTimeout(taskCtx, cfg.Timeout)
		defer cancel()

		outcome := prober.Run(iterCtx, probe.Input{Index: index})
		if iterCtx.Err() == context.DeadlineExceeded && !outcome.Success {
			outcome = types.Failed(types.FailureTimeout, outcome.DurationMS)
		}
		return outcome
	}

	remaining := n
	startIndex := 0
	if cfg.Warmup {
		warmup := runOne(runCtx, 0)
		if warmup.Success {
			rec.RecordWarmupSuccess()
		} else {
			rec.RecordFailure(warmup.Kind)
		}
		remaining = n - 1
		startIndex = 1
	}

	if remaining > 0 {
		driveRemaining(runCtx, rec, runOne, startIndex, remaining, cfg.Concurrency)
	}

	completed := types.Now()
	return rec.Finalise(started, completed, cfg.Concurrency)
}

// driveRemaining runs `remaining` iterations, numbered startIndex up to
// startIndex+remaining-1, across a fixed worker pool, funnelling outcomes
// through a single-consumer channel into rec so the histogram is never
// touched concurrently. startIndex is 1 when a warm-up iteration preceded
// this call (so indices stay contiguous with it) and 0 otherwise.
func driveRemaining(
	ctx context.Context,
	rec *recorder.Recorder,
	runOne func(context.Context, int) types.IterationOutcome,
	startIndex int,
	remaining int,
	concurrency int,
) {
	if concurrency < 1 {
		concurrency = 1
	}

	var ticket atomic.Int64
	var attempted atomic.Int64
	outcomes := make(chan types.IterationOutcome, concurrency)

	var workers sync.WaitGroup
	workers.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func() {
			defer workers.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				offset := int(ticket.Add(1))
				if offset > remaining {
					return
				}
				attempted.Add(1)
				outcomes <- runOne(ctx, startIndex+offset-1)
			}
		}()
	}

	go func() {
		workers.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		if outcome.Success {
			rec.RecordSuccess(outcome.DurationMS)
		} else {
			rec.RecordFailure(outcome.Kind)
		}
	}

	skipped := int64(remaining) - attempted.Load()
	for i := int64(0); i < skipped; i++ {
		rec.RecordSkip()
	}
}
