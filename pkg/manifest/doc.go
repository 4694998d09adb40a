// Package manifest loads the set of FHIR servers under test from a YAML
// file, supplementing the built-in operation registry with a declarative,
// editable list of targets instead of requiring a recompile to add one.
package manifest
