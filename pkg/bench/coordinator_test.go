package bench

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirbench/fhirbench/pkg/probe"
	"github.com/fhirbench/fhirbench/pkg/types"
)

func metadataSpec() probe.Spec {
	return probe.Spec{
		Method:          "GET",
		Path:            func(probe.Input) string { return "/metadata" },
		Body:            func(probe.Input) ([]byte, string) { return nil, "" },
		IsSuccessStatus: func(status int) bool { return status >= 200 && status < 300 },
		Validate:        func([]byte, string) error { return nil },
	}
}

func smallConfig() types.RunConfig {
	return types.RunConfig{
		Iterations:         3,
		OperationTimeoutMS: 500,
		ConcurrencyLevels:  []int{1},
		PopulationSize:     1,
	}
}

func TestCoordinator_LaunchFailureSkipsOperationsButStillShutsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	servers := []types.ServerDescriptor{
		{ID: "broken", BaseURL: srv.URL, LaunchRecipe: "true", ShutdownRecipe: "true"},
	}
	operations := []types.OperationDescriptor{{ID: "metadata"}}
	specs := map[string]probe.Spec{"metadata": metadataSpec()}

	c := New(smallConfig(), servers, operations, specs, types.BenchmarkMetadata{})
	c.healthConfig.Interval = 2 * time.Millisecond
	c.healthConfig.Timeout = 50 * time.Millisecond
	c.healthConfig.StableAfter = 2

	report := c.Run(context.Background())

	require.Len(t, report.Servers, 1)
	result := report.Servers[0]
	assert.False(t, result.Launch.Outcome.IsOk())
	assert.Nil(t, result.Operations)
	assert.True(t, result.Shutdown.Outcome.IsOk(), "down recipe must still run after a launch failure")
}

func TestCoordinator_RunsServersStrictlySequentially(t *testing.T) {
	var order []string

	makeHandler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			order = append(order, name)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
		}
	}

	srvA := httptest.NewServer(makeHandler("a"))
	defer srvA.Close()
	srvB := httptest.NewServer(makeHandler("b"))
	defer srvB.Close()

	servers := []types.ServerDescriptor{
		{ID: "a", BaseURL: srvA.URL, LaunchRecipe: "true", ShutdownRecipe: "true"},
		{ID: "b", BaseURL: srvB.URL, LaunchRecipe: "true", ShutdownRecipe: "true"},
	}
	operations := []types.OperationDescriptor{{ID: "metadata"}}
	specs := map[string]probe.Spec{"metadata": metadataSpec()}

	c := New(smallConfig(), servers, operations, specs, types.BenchmarkMetadata{})
	c.healthConfig.Interval = 2 * time.Millisecond
	c.healthConfig.Timeout = 50 * time.Millisecond
	c.healthConfig.StableAfter = 2

	report := c.Run(context.Background())

	require.Len(t, report.Servers, 2)
	assert.Equal(t, "a", report.Servers[0].ServerID)
	assert.Equal(t, "b", report.Servers[1].ServerID)

	aShutdownCompleted := report.Servers[0].Shutdown.Completed.Time()
	bLaunchStarted := report.Servers[1].Launch.Started.Time()
	assert.False(t, bLaunchStarted.Before(aShutdownCompleted),
		"server b must not launch before server a has fully shut down")

	require.NotEmpty(t, order)
	for _, name := range order {
		assert.NotEqual(t, "", name)
	}
}

func TestCoordinator_HappyPathProducesMeasurements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
	}))
	defer srv.Close()

	servers := []types.ServerDescriptor{
		{ID: "ok", BaseURL: srv.URL, LaunchRecipe: "true", ShutdownRecipe: "true"},
	}
	operations := []types.OperationDescriptor{{ID: "metadata"}}
	specs := map[string]probe.Spec{"metadata": metadataSpec()}

	c := New(smallConfig(), servers, operations, specs, types.BenchmarkMetadata{CommitID: "deadbeef"})
	c.healthConfig.Interval = 2 * time.Millisecond
	c.healthConfig.Timeout = 50 * time.Millisecond
	c.healthConfig.StableAfter = 2

	report := c.Run(context.Background())

	require.Len(t, report.Servers, 1)
	result := report.Servers[0]
	assert.True(t, result.Launch.Outcome.IsOk())
	require.Len(t, result.Operations, 1)
	require.Len(t, result.Operations[0].Measurements, 1)

	measurement := result.Operations[0].Measurements[0]
	assert.Equal(t, 1, measurement.ConcurrentUsers)
	assert.Equal(t, smallConfig().Iterations, measurement.IterationsSucceeded+measurement.IterationsFailed+measurement.IterationsSkipped)
	require.NotNil(t, measurement.Metrics)
	assert.True(t, result.Shutdown.Outcome.IsOk())
	assert.Equal(t, "deadbeef", report.BenchmarkMetadata.CommitID)
}

func TestCoordinator_WarmupDiscardedOnceAcrossWholeServerNotPerMeasurement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
	}))
	defer srv.Close()

	servers := []types.ServerDescriptor{
		{ID: "multi-op", BaseURL: srv.URL, LaunchRecipe: "true", ShutdownRecipe: "true"},
	}
	operations := []types.OperationDescriptor{{ID: "read"}, {ID: "search"}}
	specs := map[string]probe.Spec{"read": metadataSpec(), "search": metadataSpec()}

	cfg := smallConfig()
	cfg.ConcurrencyLevels = []int{1, 2}

	c := New(cfg, servers, operations, specs, types.BenchmarkMetadata{})
	c.healthConfig.Interval = 2 * time.Millisecond
	c.healthConfig.Timeout = 50 * time.Millisecond
	c.healthConfig.StableAfter = 2

	report := c.Run(context.Background())

	require.Len(t, report.Servers, 1)
	result := report.Servers[0]
	require.Len(t, result.Operations, 2)

	totalAttempted := 0
	for _, opResult := range result.Operations {
		for _, m := range opResult.Measurements {
			totalAttempted += m.IterationsSucceeded + m.IterationsFailed + m.IterationsSkipped
		}
	}
	// 2 operations x 2 concurrency levels = 4 measurements of 3 iterations each.
	// Exactly one iteration across the whole server is the discarded warm-up, so
	// every iteration is still accounted for in one of the three buckets.
	assert.Equal(t, 4*smallConfig().Iterations, totalAttempted)
}

func TestCoordinator_OperationRequiringResetSkippedWithoutRecipe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
	}))
	defer srv.Close()

	servers := []types.ServerDescriptor{
		{ID: "no-reset", BaseURL: srv.URL, LaunchRecipe: "true", ShutdownRecipe: "true"},
	}
	operations := []types.OperationDescriptor{{ID: "metadata", RequiresReset: true}}
	specs := map[string]probe.Spec{"metadata": metadataSpec()}

	c := New(smallConfig(), servers, operations, specs, types.BenchmarkMetadata{})
	c.healthConfig.Interval = 2 * time.Millisecond
	c.healthConfig.Timeout = 50 * time.Millisecond
	c.healthConfig.StableAfter = 2

	report := c.Run(context.Background())

	require.Len(t, report.Servers, 1)
	assert.Empty(t, report.Servers[0].Operations)
}
