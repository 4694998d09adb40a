/*
Package recorder turns a stream of per-iteration outcomes into a sealed
Measurement: an HDR histogram of successful latencies plus failure/skip
counters.

A Recorder is created once per (server, operation, concurrency) cell,
fed via RecordSuccess/RecordFailure/RecordSkip as iterations complete, and
sealed with Finalise once the load driver's worker pool has joined. The
histogram range is fixed at 1..ceiling milliseconds (default 60000) at 3
significant digits — wide enough for every realistic FHIR response, narrow
enough to keep relative error bounded at the tail.

	rec := recorder.New(recorder.DefaultCeilingMillis)
	rec.RecordSuccess(12)
	rec.RecordFailure(types.FailureTimeout)
	measurement, err := rec.Finalise(started, completed, concurrency)
*/
package recorder
