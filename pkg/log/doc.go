// Package log provides the process-wide zerolog logger.
//
// Init is called once from cmd/fhirbench at process start; every other
// package obtains a child logger via WithComponent, WithServer, or
// WithOperation rather than constructing its own. Logs always go to stderr
// (or a caller-supplied Output); the benchmark report is the only thing
// ever written to stdout.
package log
