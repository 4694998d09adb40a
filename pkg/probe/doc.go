// Package probe executes a single FHIR operation against a single server
// and classifies the result into a types.IterationOutcome.
//
// A Probe wraps a Spec (method, path, body, success predicate, validator)
// and an *http.Client shared across every iteration of a measurement. The
// expensive structural validation runs in full until one response passes
// it (normally the first call a Probe makes); later calls fall back to a
// fuzzy check (response size within ±50% of that first validated sample,
// matching content-type) so an
// unnoticed regression is still caught without paying full-parse cost on
// every iteration.
package probe
