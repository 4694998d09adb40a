// Package types holds the data model shared across the benchmark pipeline:
// server and operation descriptors, run configuration, iteration outcomes,
// measurements, and the top-level report. Nothing in this package performs
// I/O or contains behaviour beyond small derivations (Outcome helpers,
// period-string formatting); every other package imports it, it imports
// nothing of its own.
package types
