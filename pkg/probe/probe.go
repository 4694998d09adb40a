package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fhirbench/fhirbench/pkg/types"
)

// Input is the per-iteration material a Spec draws from: a ticket index
// (used to pick a sample-data file deterministically) and any raw bytes
// already resolved for this iteration.
type Input struct {
	Index int
	Body  []byte
}

// Spec describes one FHIR operation's request construction and response
// judgement. It holds no per-run state; a Probe wraps it with the mutable
// first-sample bookkeeping.
type Spec struct {
	// Method is the HTTP method, e.g. "GET" or "POST".
	Method string

	// Path builds the request path (relative to the server base URL) for
	// the given input, e.g. "/Patient/example".
	Path func(input Input) string

	// Body returns the request body and content-type for the given input.
	// Both are empty for operations that send no body.
	Body func(input Input) (body []byte, contentType string)

	// IsSuccessStatus reports whether an HTTP status code counts as success
	// for this operation.
	IsSuccessStatus func(status int) bool

	// Validate performs the full structural check on a response body
	// (resourceType, required fields, ...). Returns a non-nil error
	// describing the first problem found.
	Validate func(body []byte, contentType string) error
}

// Probe runs one Spec against one server's base URL over a shared HTTP
// client, applying the full-validate-once/fuzzy-validate-after policy.
type Probe struct {
	spec    Spec
	baseURL string
	client  *http.Client

	mu               sync.Mutex
	firstValidated   bool
	firstSampleBytes int
	firstContentType string
}

// New creates a Probe. client is expected to be shared read-only across
// every worker driving this measurement.
func New(spec Spec, baseURL string, client *http.Client) *Probe {
	return &Probe{spec: spec, baseURL: baseURL, client: client}
}

// Run executes one iteration and returns its outcome. Duration is measured
// in whole milliseconds using the monotonic clock embedded in time.Time.
func (p *Probe) Run(ctx context.Context, input Input) types.IterationOutcome {
	start := time.Now()

	body, contentType := p.spec.Body(input)

	url := p.baseURL + p.spec.Path(input)
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, p.spec.Method, url, bodyReader)
	if err != nil {
		return types.Failed(types.FailureTransportError, elapsedMS(start))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/fhir+json, application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return types.Failed(types.FailureTransportError, elapsedMS(start))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Failed(types.FailureTransportError, elapsedMS(start))
	}

	if !p.spec.IsSuccessStatus(resp.StatusCode) {
		return types.Failed(types.FailureHTTPStatusError, elapsedMS(start))
	}

	if err := p.judge(respBody, resp.Header.Get("Content-Type")); err != nil {
		return types.Failed(types.FailureValidationError, elapsedMS(start))
	}

	return types.Succeeded(elapsedMS(start))
}

// judge applies the full validator until one response has passed it, and a
// cheap fuzzy check against that first validated sample on every call after.
func (p *Probe) judge(body []byte, contentType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.firstValidated {
		if err := p.spec.Validate(body, contentType); err != nil {
			return err
		}
		p.firstValidated = true
		p.firstSampleBytes = len(body)
		p.firstContentType = contentType
		return nil
	}

	return fuzzyCheck(body, contentType, p.firstSampleBytes, p.firstContentType)
}

func fuzzyCheck(body []byte, contentType string, sampleSize int, sampleContentType string) error {
	if sampleContentType != "" && contentType != sampleContentType {
		return fmt.Errorf("probe: content-type drifted from %q to %q", sampleContentType, contentType)
	}
	if sampleSize == 0 {
		return nil
	}
	lower := float64(sampleSize) * 0.5
	upper := float64(sampleSize) * 1.5
	size := float64(len(body))
	if size < lower || size > upper {
		return fmt.Errorf("probe: response size %d outside ±50%% of sample %d", len(body), sampleSize)
	}
	return nil
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
