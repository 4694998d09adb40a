package recorder

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/fhirbench/fhirbench/pkg/types"
)

// DefaultCeilingMillis is the histogram's upper trackable bound. Iterations
// beyond it are dominated by the per-iteration timeout policy anyway, so
// extending the range would add no information (see the design notes on
// histogram value range).
const DefaultCeilingMillis = 60000

const lowestTrackableMillis = 1
const significantFigures = 3

// Recorder accumulates one measurement's worth of iteration outcomes.
// Recording is O(1); a lightweight mutex serialises writes, which the
// concurrency model explicitly allows as an alternative to a dedicated
// single-consumer queue.
type Recorder struct {
	mu      sync.Mutex
	hist    *hdrhistogram.Histogram
	ceiling int64

	successes int64
	// measured is the subset of successes with a duration that counts
	// toward the histogram and the mean; it excludes warm-up successes,
	// which advance successes but never touch durations or the histogram.
	measured  int64
	failures  int64
	skips     int64
	durations int64 // running sum of recorded latencies, for the mean
	clamped   int64
}

// New creates a Recorder with the given histogram ceiling in milliseconds.
func New(ceilingMillis int64) *Recorder {
	if ceilingMillis <= lowestTrackableMillis {
		ceilingMillis = DefaultCeilingMillis
	}
	return &Recorder{
		hist:    hdrhistogram.New(lowestTrackableMillis, ceilingMillis, significantFigures),
		ceiling: ceilingMillis,
	}
}

// RecordSuccess inserts a successful iteration's duration into the
// histogram, clamping to the ceiling if necessary.
func (r *Recorder) RecordSuccess(durationMS int64) {
	clamped := durationMS
	wasClamped := false
	if clamped > r.ceiling {
		clamped = r.ceiling
		wasClamped = true
	}
	if clamped < lowestTrackableMillis {
		clamped = lowestTrackableMillis
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.hist.RecordValue(clamped)
	r.successes++
	r.measured++
	r.durations += durationMS
	if wasClamped {
		r.clamped++
	}
}

// RecordWarmupSuccess accounts for a successful warm-up iteration: the
// success counter advances but the histogram and mean never see its
// duration (measured is left untouched), which absorbs JIT/cache
// cold-start effects common on JVM-based servers.
func (r *Recorder) RecordWarmupSuccess() {
	r.mu.Lock()
	r.successes++
	r.mu.Unlock()
}

// RecordFailure increments the failure counter. Failed iterations have no
// well-defined latency and never touch the histogram.
func (r *Recorder) RecordFailure(kind types.FailureKind) {
	_ = kind // kept for call-site clarity and future per-kind breakdowns
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

// RecordSkip increments the skip counter, used when the load driver
// abandons an iteration because the wall-clock budget expired.
func (r *Recorder) RecordSkip() {
	r.mu.Lock()
	r.skips++
	r.mu.Unlock()
}

// Finalise seals the measurement. Metrics is nil when no iteration
// succeeded — a legitimate outcome, not an error.
func (r *Recorder) Finalise(started, completed types.JSONTime, concurrentUsers int) (types.Measurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := types.Measurement{
		ConcurrentUsers:     concurrentUsers,
		Started:             started,
		Completed:           completed,
		ExecutionDuration:   types.NewPeriod(completed.Time().Sub(started.Time())),
		IterationsSucceeded: int(r.successes),
		IterationsFailed:    int(r.failures),
		IterationsSkipped:   int(r.skips),
	}

	if r.successes == 0 {
		return m, nil
	}

	elapsed := completed.Time().Sub(started.Time()).Seconds()
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(r.successes) / elapsed
	}

	histogramBlob, err := encodeHistogram(r.hist)
	if err != nil {
		return m, &types.SerialisationError{Op: "encode latency_histogram", Cause: err}
	}
	hgrmBlob, err := encodeHgrmGzip(r.hist)
	if err != nil {
		return m, &types.SerialisationError{Op: "encode latency_histogram_hgrm_gzip", Cause: err}
	}

	mean := 0.0
	if r.measured > 0 {
		mean = float64(r.durations) / float64(r.measured)
	}

	m.Metrics = &types.Metrics{
		ThroughputPerSecond:      throughput,
		LatencyMillisMean:        mean,
		LatencyMillisP50:         r.hist.ValueAtQuantile(50),
		LatencyMillisP90:         r.hist.ValueAtQuantile(90),
		LatencyMillisP99:         r.hist.ValueAtQuantile(99),
		LatencyMillisP999:        r.hist.ValueAtQuantile(99.9),
		LatencyMillisP100:        r.hist.ValueAtQuantile(100),
		LatencyHistogram:         histogramBlob,
		LatencyHistogramHgrmGzip: hgrmBlob,
		ClampedCount:             r.clamped,
	}

	return m, nil
}

