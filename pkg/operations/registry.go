package operations

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fhirbench/fhirbench/pkg/probe"
	"github.com/fhirbench/fhirbench/pkg/sampledata"
	"github.com/fhirbench/fhirbench/pkg/types"
)

// IDs of the built-in operations, in the fixed order the coordinator drives
// them against every applicable server.
const (
	Metadata          = "metadata"
	CreateOrganization = "POST /Organization"
	CreatePatient      = "POST /Patient"
	ReadPatient        = "GET /Patient/{id}"
)

// readPatientID is the canonical example resource most FHIR reference
// servers ship out of the box. The registry does not chain a prior create's
// response into this read.
const readPatientID = "example"

type resourceTypeProbe struct {
	ResourceType string `json:"resourceType"`
}

func validateResourceType(want string) func(body []byte, contentType string) error {
	return func(body []byte, contentType string) error {
		if !strings.Contains(contentType, "json") {
			return fmt.Errorf("operations: unexpected content-type %q", contentType)
		}
		var probe resourceTypeProbe
		if err := json.Unmarshal(body, &probe); err != nil {
			return fmt.Errorf("operations: response is not valid JSON: %w", err)
		}
		if probe.ResourceType != want {
			return fmt.Errorf("operations: expected resourceType %q, got %q", want, probe.ResourceType)
		}
		return nil
	}
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// Builtins returns the built-in operation descriptors and a map from
// operation ID to probe spec. Descriptors
// are declared in Builtins() order, which is also the order the coordinator
// drives operations in — determinism required by invariant I6.
func Builtins(samples *sampledata.Set) ([]types.OperationDescriptor, map[string]probe.Spec) {
	descriptors := []types.OperationDescriptor{
		{ID: Metadata, RequiresReset: false},
		{ID: CreateOrganization, RequiresReset: true},
		{ID: CreatePatient, RequiresReset: true},
		{ID: ReadPatient, RequiresReset: false},
	}

	specs := map[string]probe.Spec{
		Metadata: {
			Method:          http.MethodGet,
			Path:            func(probe.Input) string { return "/metadata" },
			Body:            func(probe.Input) ([]byte, string) { return nil, "" },
			IsSuccessStatus: func(status int) bool { return status == http.StatusOK },
			Validate:        validateResourceType("CapabilityStatement"),
		},
		CreateOrganization: {
			Method: http.MethodPost,
			Path:   func(probe.Input) string { return "/Organization" },
			Body: func(in probe.Input) ([]byte, string) {
				return organizationBody(in.Index), "application/fhir+json"
			},
			IsSuccessStatus: is2xx,
			Validate:        validateResourceType("Organization"),
		},
		CreatePatient: {
			Method: http.MethodPost,
			Path:   func(probe.Input) string { return "/Patient" },
			Body: func(in probe.Input) ([]byte, string) {
				if samples != nil && samples.Len() > 0 {
					if body, err := samples.At(in.Index); err == nil {
						return body, "application/fhir+json"
					}
				}
				return patientBody(in.Index), "application/fhir+json"
			},
			IsSuccessStatus: is2xx,
			Validate:        validateResourceType("Patient"),
		},
		ReadPatient: {
			Method:          http.MethodGet,
			Path:            func(probe.Input) string { return "/Patient/" + readPatientID },
			Body:            func(probe.Input) ([]byte, string) { return nil, "" },
			IsSuccessStatus: func(status int) bool { return status == http.StatusOK },
			Validate:        validateResourceType("Patient"),
		},
	}

	return descriptors, specs
}

func organizationBody(index int) []byte {
	return []byte(fmt.Sprintf(`{"resourceType":"Organization","name":"fhirbench-org-%d"}`, index))
}

func patientBody(index int) []byte {
	return []byte(fmt.Sprintf(`{"resourceType":"Patient","active":true,"name":[{"family":"fhirbench-%d"}]}`, index))
}
