// Package sampledata enumerates the read-only directory of FHIR bundle JSON
// files produced by the external data-generation tool. The core never
// generates sample data itself; it only indexes into whatever the
// collaborator already produced for the configured population size.
package sampledata
