package bench

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fhirbench/fhirbench/pkg/health"
	"github.com/fhirbench/fhirbench/pkg/lifecycle"
	"github.com/fhirbench/fhirbench/pkg/loaddriver"
	"github.com/fhirbench/fhirbench/pkg/log"
	"github.com/fhirbench/fhirbench/pkg/metrics"
	"github.com/fhirbench/fhirbench/pkg/probe"
	"github.com/fhirbench/fhirbench/pkg/recorder"
	"github.com/fhirbench/fhirbench/pkg/types"
)

// wallClockMultiplier bounds a measurement's total wall-clock time as a
// multiple of its naive expected duration, so a hung server can't stall the
// whole run indefinitely.
const wallClockMultiplier = 10

// ShutdownTimeout is the grace period given to a server's down recipe
// before the lifecycle controller escalates to SIGTERM/SIGKILL.
const ShutdownTimeout = 30 * time.Second

// LaunchTimeout is the default readiness deadline for a freshly launched
// server.
const LaunchTimeout = 2 * time.Minute

// Coordinator is the top-level sequential driver described in Package.
type Coordinator struct {
	config     types.RunConfig
	servers    []types.ServerDescriptor
	operations []types.OperationDescriptor
	specs      map[string]probe.Spec
	metadata   types.BenchmarkMetadata

	healthConfig health.Config

	mu                 sync.Mutex
	currentServer      string
	currentOperation   string
	currentConcurrency int
}

// New creates a Coordinator. specs must contain an entry for every
// operation's ID.
func New(
	config types.RunConfig,
	servers []types.ServerDescriptor,
	operations []types.OperationDescriptor,
	specs map[string]probe.Spec,
	metadata types.BenchmarkMetadata,
) *Coordinator {
	return &Coordinator{
		config:       config,
		servers:      servers,
		operations:   operations,
		specs:        specs,
		metadata:     metadata,
		healthConfig: health.DefaultConfig(),
	}
}

// Snapshot implements metrics.StateProvider so an optional debug endpoint
// can report which server/operation/concurrency cell is currently running.
func (c *Coordinator) Snapshot() metrics.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return metrics.Snapshot{
		Server:      c.currentServer,
		Operation:   c.currentOperation,
		Concurrency: c.currentConcurrency,
	}
}

func (c *Coordinator) setCurrent(server, operation string, concurrency int) {
	c.mu.Lock()
	c.currentServer = server
	c.currentOperation = operation
	c.currentConcurrency = concurrency
	c.mu.Unlock()
}

func (c *Coordinator) clearCurrent() {
	c.setCurrent("", "", 0)
}

// Run drives the full benchmark and returns the assembled Report. ctx
// cancellation (SIGINT/SIGTERM) is honoured between phases: the current
// server's shutdown recipe is still invoked before Run returns, guaranteeing
// container cleanup even on external cancellation.
func (c *Coordinator) Run(ctx context.Context) types.Report {
	started := types.Now()
	logger := log.WithComponent("coordinator")

	results := make([]types.ServerResult, 0, len(c.servers))
	for _, server := range c.servers {
		results = append(results, c.runServer(ctx, server, logger))
		if ctx.Err() != nil {
			break
		}
	}

	return types.Report{
		Started:           started,
		Completed:         types.Now(),
		Config:            c.config,
		BenchmarkMetadata: c.metadata,
		Servers:           results,
	}
}

func (c *Coordinator) runServer(ctx context.Context, server types.ServerDescriptor, logger zerolog.Logger) types.ServerResult {
	controller := lifecycle.New(server, c.healthConfig, LaunchTimeout)

	launch := controller.Launch(ctx)
	result := types.ServerResult{ServerID: server.ID, Launch: launch}

	if !launch.Outcome.IsOk() {
		logger.Error().Str("server", server.ID).Msg("launch failed, skipping operations")
		result.Operations = nil
		result.Shutdown = controller.Shutdown(ShutdownTimeout)
		return result
	}

	client := &http.Client{}
	result.Operations = c.runOperations(ctx, server, controller, client, logger)
	result.Shutdown = controller.Shutdown(ShutdownTimeout)
	c.clearCurrent()
	return result
}

func (c *Coordinator) runOperations(
	ctx context.Context,
	server types.ServerDescriptor,
	controller *lifecycle.Controller,
	client *http.Client,
	logger zerolog.Logger,
) []types.OperationResult {
	var opResults []types.OperationResult

	for _, op := range c.operations {
		if ctx.Err() != nil {
			break
		}
		if !op.AppliesTo(server.ID) {
			continue
		}
		if op.RequiresReset && !server.HasReset() {
			logger.Warn().Str("server", server.ID).Str("operation", op.ID).
				Msg("server has no reset recipe, skipping operation that requires empty state")
			continue
		}

		spec, ok := c.specs[op.ID]
		if !ok {
			logger.Error().Str("operation", op.ID).Msg("no probe spec registered, skipping")
			continue
		}

		measurements := c.runConcurrencyLevels(ctx, server, op, spec, controller, client, logger)
		opResults = append(opResults, types.OperationResult{OperationID: op.ID, Measurements: measurements})
	}

	return opResults
}

func (c *Coordinator) runConcurrencyLevels(
	ctx context.Context,
	server types.ServerDescriptor,
	op types.OperationDescriptor,
	spec probe.Spec,
	controller *lifecycle.Controller,
	client *http.Client,
	logger zerolog.Logger,
) []types.Measurement {
	var measurements []types.Measurement

	for _, k := range c.config.ConcurrencyLevels {
		if ctx.Err() != nil {
			break
		}

		if err := controller.Reset(ctx); err != nil {
			logger.Error().Err(err).Str("server", server.ID).Str("operation", op.ID).
				Msg("reset failed, skipping this concurrency level")
			continue
		}

		c.setCurrent(server.ID, op.ID, k)

		p := probe.New(spec, server.BaseURL, client)
		timeout := time.Duration(c.config.OperationTimeoutMS) * time.Millisecond
		budget := time.Duration(c.config.Iterations) * timeout / time.Duration(maxInt(k, 1)) * wallClockMultiplier

		measurement, err := loaddriver.Run(ctx, p, loaddriver.Config{
			Iterations:      c.config.Iterations,
			Concurrency:     k,
			Timeout:         timeout,
			WallClockBudget: budget,
			CeilingMillis:   recorder.DefaultCeilingMillis,
			Warmup:          controller.NeedsWarmup(),
		})
		if err != nil {
			logger.Error().Err(err).Str("server", server.ID).Str("operation", op.ID).
				Msg("failed to finalise measurement")
			continue
		}

		measurements = append(measurements, measurement)
		metrics.IterationsTotal.WithLabelValues(server.ID, op.ID, "success").Add(float64(measurement.IterationsSucceeded))
		metrics.IterationsTotal.WithLabelValues(server.ID, op.ID, "failure").Add(float64(measurement.IterationsFailed))
		metrics.IterationsTotal.WithLabelValues(server.ID, op.ID, "skip").Add(float64(measurement.IterationsSkipped))
	}

	return measurements
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
