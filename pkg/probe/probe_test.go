package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirbench/fhirbench/pkg/types"
)

func metadataSpec() Spec {
	return Spec{
		Method: "GET",
		Path:   func(Input) string { return "/metadata" },
		Body:   func(Input) ([]byte, string) { return nil, "" },
		IsSuccessStatus: func(status int) bool {
			return status == http.StatusOK
		},
		Validate: func(body []byte, contentType string) error {
			if len(body) == 0 {
				return errors.New("empty body")
			}
			return nil
		},
	}
}

func TestProbe_SuccessfulIteration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/fhir+json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
	}))
	defer srv.Close()

	p := New(metadataSpec(), srv.URL, srv.Client())
	outcome := p.Run(context.Background(), Input{Index: 0})

	assert.True(t, outcome.Success)
	assert.Equal(t, types.FailureKind(""), outcome.Kind)
}

func TestProbe_TransportError(t *testing.T) {
	p := New(metadataSpec(), "http://127.0.0.1:1", &http.Client{Timeout: 200 * time.Millisecond})
	outcome := p.Run(context.Background(), Input{Index: 0})

	require.False(t, outcome.Success)
	assert.Equal(t, types.FailureTransportError, outcome.Kind)
}

func TestProbe_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(metadataSpec(), srv.URL, srv.Client())
	outcome := p.Run(context.Background(), Input{Index: 0})

	require.False(t, outcome.Success)
	assert.Equal(t, types.FailureHTTPStatusError, outcome.Kind)
}

func TestProbe_ValidationErrorOnFirstCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(``))
	}))
	defer srv.Close()

	p := New(metadataSpec(), srv.URL, srv.Client())
	outcome := p.Run(context.Background(), Input{Index: 0})

	require.False(t, outcome.Success)
	assert.Equal(t, types.FailureValidationError, outcome.Kind)
}

func TestProbe_SubsequentCallsUseFuzzyValidation(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/fhir+json")
		w.WriteHeader(http.StatusOK)
		if calls == 1 {
			w.Write([]byte(`{"resourceType":"CapabilityStatement","padding":"0123456789"}`))
		} else {
			// same rough size/content-type: should pass the fuzzy check
			w.Write([]byte(`{"resourceType":"CapabilityStatement","padding":"9876543210"}`))
		}
	}))
	defer srv.Close()

	p := New(metadataSpec(), srv.URL, srv.Client())

	first := p.Run(context.Background(), Input{Index: 0})
	second := p.Run(context.Background(), Input{Index: 1})

	assert.True(t, first.Success)
	assert.True(t, second.Success)
}

func TestProbe_FuzzyValidationCatchesSizeRegression(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/fhir+json")
		w.WriteHeader(http.StatusOK)
		if calls == 1 {
			w.Write([]byte(`{"resourceType":"CapabilityStatement","padding":"01234567890123456789012345678901234567890123456789"}`))
		} else {
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	p := New(metadataSpec(), srv.URL, srv.Client())

	first := p.Run(context.Background(), Input{Index: 0})
	second := p.Run(context.Background(), Input{Index: 1})

	assert.True(t, first.Success)
	require.False(t, second.Success)
	assert.Equal(t, types.FailureValidationError, second.Kind)
}
