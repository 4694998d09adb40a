package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IterationsTotal counts load-driver outcomes by server, operation, and
	// outcome (success, failure, skip). This is the scrape-friendly cousin of
	// the HDR histograms in pkg/recorder — coarse counts for dashboards, not
	// the percentile data that ends up in the report.
	IterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fhirbench_iterations_total",
			Help: "Total benchmark iterations by server, operation, and outcome",
		},
		[]string{"server", "operation", "outcome"},
	)

	// ConcurrencyCurrent reports the worker-pool size of whatever
	// server/operation/concurrency cell is currently running.
	ConcurrencyCurrent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fhirbench_concurrency_current",
			Help: "Concurrency level of the run currently in progress",
		},
	)

	// RunInfo is set to 1 for the (server, operation) pair currently under
	// test and reset to 0 once the coordinator moves on.
	RunInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fhirbench_run_info",
			Help: "1 for the server/operation pair currently under test",
		},
		[]string{"server", "operation"},
	)

	// OperationDuration is the probe call latency as seen by the debug
	// endpoint. It exists for operators watching a run live; the report's
	// authoritative latencies come from pkg/recorder's HDR histograms. It is
	// registered, but no package in this module observes into it.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fhirbench_operation_duration_seconds",
			Help:    "Operation probe duration in seconds by server and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server", "operation"},
	)

	// ServerLaunchDuration is the histogram for how long each server took to
	// reach readiness. It is registered, but no package in this module
	// observes into it.
	ServerLaunchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fhirbench_server_launch_duration_seconds",
			Help:    "Time from launch recipe invocation to readiness in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	// ServerLaunchesTotal is the counter for launch attempts by server and
	// outcome (ready, timeout, error). It is registered, but no package in
	// this module increments it.
	ServerLaunchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fhirbench_server_launches_total",
			Help: "Total server launch attempts by server and outcome",
		},
		[]string{"server", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		IterationsTotal,
		ConcurrencyCurrent,
		RunInfo,
		OperationDuration,
		ServerLaunchDuration,
		ServerLaunchesTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
