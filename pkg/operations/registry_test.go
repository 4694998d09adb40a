package operations

import (
	"testing"

	"github.com/fhirbench/fhirbench/pkg/probe"
)

func TestBuiltins_DeclaresFourOperationsInOrder(t *testing.T) {
	descriptors, specs := Builtins(nil)

	want := []string{Metadata, CreateOrganization, CreatePatient, ReadPatient}
	if len(descriptors) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(descriptors))
	}
	for i, id := range want {
		if descriptors[i].ID != id {
			t.Errorf("operation %d: expected %q, got %q", i, id, descriptors[i].ID)
		}
		if _, ok := specs[id]; !ok {
			t.Errorf("missing probe spec for %q", id)
		}
	}
}

func TestMetadataSpec_ValidatesCapabilityStatement(t *testing.T) {
	_, specs := Builtins(nil)
	spec := specs[Metadata]

	if err := spec.Validate([]byte(`{"resourceType":"CapabilityStatement"}`), "application/fhir+json"); err != nil {
		t.Errorf("expected valid capability statement to pass, got %v", err)
	}
	if err := spec.Validate([]byte(`{"resourceType":"OperationOutcome"}`), "application/fhir+json"); err == nil {
		t.Error("expected wrong resourceType to fail validation")
	}
}

func TestCreatePatientSpec_FallsBackToSyntheticBodyWithoutSamples(t *testing.T) {
	_, specs := Builtins(nil)
	spec := specs[CreatePatient]

	body, contentType := spec.Body(probe.Input{Index: 3})
	if len(body) == 0 {
		t.Fatal("expected non-empty synthetic patient body")
	}
	if contentType != "application/fhir+json" {
		t.Errorf("unexpected content-type %q", contentType)
	}
}
