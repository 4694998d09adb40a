// Package operations is the built-in registry of FHIR operations the
// coordinator can drive: metadata capability fetch, resource creation, and
// resource read-back. The distilled specification gives these only as
// examples; this registry is what turns them into a complete, runnable set.
package operations
