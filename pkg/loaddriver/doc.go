/*
Package loaddriver is the concurrent load driver (C3): given a probe,
iteration count, concurrency level, and per-iteration timeout, it runs up
to N iterations with at most K in flight, bounds each iteration by a
deadline, discards the first iteration's latency as warm-up noise when
Config.Warmup is set, and returns one sealed Measurement from pkg/recorder.

Workers pull iteration tickets from a shared counter and reissue
immediately on completion — there is no modelled think-time. Outcomes
funnel through a single-consumer channel into one Recorder, so the
histogram itself is never touched by more than one goroutine at a time
even though K workers run concurrently.
*/
package loaddriver
