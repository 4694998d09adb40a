package types

import "time"

// ServerDescriptor identifies one FHIR server implementation under test: a
// stable name, the shell recipes that bring it up and tear it down, an
// optional per-operation reset recipe, and the base URL the probe talks to.
// Descriptors are immutable for the duration of a run.
type ServerDescriptor struct {
	ID             string `yaml:"id" json:"id"`
	BaseURL        string `yaml:"base_url" json:"base_url"`
	LaunchRecipe   string `yaml:"launch_recipe" json:"launch_recipe"`
	ShutdownRecipe string `yaml:"shutdown_recipe" json:"shutdown_recipe"`

	// ResetRecipe is invoked before each operation to expunge server state.
	// Empty means the server has no supported reset mechanism; operations
	// that require an empty dataset are skipped for this server rather than
	// run against contaminated state.
	ResetRecipe string `yaml:"reset_recipe,omitempty" json:"reset_recipe,omitempty"`
}

// HasReset reports whether this server supports per-operation state reset.
func (s ServerDescriptor) HasReset() bool {
	return s.ResetRecipe != ""
}

// OperationDescriptor names one FHIR operation, the servers it applies to,
// and how a single iteration is built and judged.
type OperationDescriptor struct {
	ID string `yaml:"id" json:"id"`

	// Servers restricts this operation to a subset of configured servers.
	// Empty means "every server".
	Servers []string `yaml:"servers,omitempty" json:"servers,omitempty"`

	// RequiresReset marks operations that must run against an empty
	// dataset; against a server with no reset recipe they are skipped.
	RequiresReset bool `yaml:"requires_reset" json:"requires_reset"`
}

// AppliesTo reports whether this operation should run against serverID.
func (o OperationDescriptor) AppliesTo(serverID string) bool {
	if len(o.Servers) == 0 {
		return true
	}
	for _, s := range o.Servers {
		if s == serverID {
			return true
		}
	}
	return false
}

// RunConfig is the enumerated set of knobs fixed at run start and carried
// verbatim into the report.
type RunConfig struct {
	Iterations         int   `json:"iterations"`
	OperationTimeoutMS int   `json:"operation_timeout_ms"`
	ConcurrencyLevels  []int `json:"concurrency_levels"`
	PopulationSize     int   `json:"population_size"`
}

// DefaultRunConfig returns the defaults named in the data model.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Iterations:         1000,
		OperationTimeoutMS: 10000,
		ConcurrencyLevels:  []int{1, 8},
		PopulationSize:     100,
	}
}

// FailureKind classifies why an iteration did not succeed.
type FailureKind string

const (
	FailureTimeout         FailureKind = "timeout"
	FailureTransportError  FailureKind = "transport_error"
	FailureHTTPStatusError FailureKind = "http_status_error"
	FailureValidationError FailureKind = "validation_error"
)

// IterationOutcome is the result of one attempted probe call: exactly one
// of Success or Failure holds, distinguished by the Kind field being empty.
type IterationOutcome struct {
	Success    bool
	DurationMS int64
	Kind       FailureKind
}

// Succeeded builds a successful outcome with the given duration.
func Succeeded(durationMS int64) IterationOutcome {
	return IterationOutcome{Success: true, DurationMS: durationMS}
}

// Failed builds a failed outcome of the given kind.
func Failed(kind FailureKind, durationMS int64) IterationOutcome {
	return IterationOutcome{Success: false, Kind: kind, DurationMS: durationMS}
}

// Metrics is the latency/throughput summary of a measurement with at least
// one successful iteration. Percentiles are integer milliseconds; the two
// histogram fields are opaque, versioned, base64-encoded payloads meant to
// round-trip through standard HDR-histogram tooling.
type Metrics struct {
	ThroughputPerSecond      float64 `json:"throughput_per_second"`
	LatencyMillisMean        float64 `json:"latency_millis_mean"`
	LatencyMillisP50         int64   `json:"latency_millis_p50"`
	LatencyMillisP90         int64   `json:"latency_millis_p90"`
	LatencyMillisP99         int64   `json:"latency_millis_p99"`
	LatencyMillisP999        int64   `json:"latency_millis_p999"`
	LatencyMillisP100        int64   `json:"latency_millis_p100"`
	LatencyHistogram         string  `json:"latency_histogram"`
	LatencyHistogramHgrmGzip string  `json:"latency_histogram_hgrm_gzip"`

	// ClampedCount is the number of successful iterations whose recorded
	// duration exceeded the histogram ceiling and was clamped to it. Zero
	// unless a server produced pathologically slow responses.
	ClampedCount int64 `json:"clamped_count,omitempty"`
}

// Measurement is one (operation, concurrency) pair's sealed aggregate.
type Measurement struct {
	ConcurrentUsers     int      `json:"concurrent_users"`
	Started             JSONTime `json:"started"`
	Completed           JSONTime `json:"completed"`
	ExecutionDuration   Period   `json:"execution_duration"`
	IterationsSucceeded int      `json:"iterations_succeeded"`
	IterationsFailed    int      `json:"iterations_failed"`
	IterationsSkipped   int      `json:"iterations_skipped"`
	Metrics             *Metrics `json:"metrics"`
}

// OperationResult groups every measurement taken for one operation against
// one server, in configured concurrency order.
type OperationResult struct {
	OperationID  string        `json:"operation_id"`
	Measurements []Measurement `json:"measurements"`
}

// Outcome is either Ok (no errors) or Errs (one or more error messages),
// mirroring the data model's two-variant result without a sum type.
type Outcome struct {
	Errors []string `json:"errors"`
}

// Ok returns a successful outcome.
func Ok() Outcome { return Outcome{Errors: []string{}} }

// Errs returns a failed outcome carrying the given error messages.
func Errs(messages ...string) Outcome { return Outcome{Errors: messages} }

// IsOk reports whether the outcome carries no errors.
func (o Outcome) IsOk() bool { return len(o.Errors) == 0 }

// Phase is the started/completed/outcome triple recorded for the launch and
// shutdown steps of a server's lifecycle.
type Phase struct {
	Started   JSONTime `json:"started"`
	Completed JSONTime `json:"completed"`
	Outcome   Outcome  `json:"outcome"`
}

// ServerResult is one server's full contribution to the report. Operations
// is nil when launch failed, per invariant I5.
type ServerResult struct {
	ServerID   string            `json:"server_id"`
	Launch     Phase             `json:"launch"`
	Operations []OperationResult `json:"operations"`
	Shutdown   Phase             `json:"shutdown"`
}

// BenchmarkMetadata captures opaque, informational build/host strings the
// coordinator neither interprets nor validates.
type BenchmarkMetadata struct {
	CommitID     string `json:"commit_id"`
	BuildProfile string `json:"build_profile"`
	CPUSummary   string `json:"cpu_summary"`
}

// Report is the complete, self-contained benchmark output. Field order
// matches the declared key order: started, completed, config,
// benchmark_metadata, servers.
type Report struct {
	Started           JSONTime          `json:"started"`
	Completed         JSONTime          `json:"completed"`
	Config            RunConfig         `json:"config"`
	BenchmarkMetadata BenchmarkMetadata `json:"benchmark_metadata"`
	Servers           []ServerResult    `json:"servers"`
}

// JSONTime is time.Time restricted to RFC 3339 with sub-second precision on
// the wire, regardless of how much precision the underlying value carries.
type JSONTime time.Time

// Now returns the current instant as a JSONTime.
func Now() JSONTime { return JSONTime(time.Now().UTC()) }

func (t JSONTime) Time() time.Time { return time.Time(t) }

func (t JSONTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(time.RFC3339Nano) + `"`), nil
}

func (t *JSONTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = JSONTime(parsed)
	return nil
}
