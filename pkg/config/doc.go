// Package config resolves the run-level knobs (iteration count, concurrency
// levels, population size, per-operation timeout) from environment
// variables, falling back to types.DefaultRunConfig for anything unset.
// Loading is strict: a malformed value produces a *types.ConfigError rather
// than silently substituting a default, since the coordinator must not
// launch a single server on a misconfigured run.
package config
