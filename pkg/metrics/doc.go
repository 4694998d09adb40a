// Package metrics provides an optional, operator-facing Prometheus endpoint
// for long-running benchmarks.
//
// This is not part of the benchmark report (see pkg/types and pkg/recorder
// for that — HDR histograms, not Prometheus vectors). It is a live
// instrument an operator can scrape while a run is in progress: iterations
// attempted/succeeded/failed/skipped, the current concurrency level, and
// which server/operation is currently under test. It is silent unless
// cmd/fhirbench is started with --debug-addr.
package metrics
