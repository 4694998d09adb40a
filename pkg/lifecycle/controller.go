package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fhirbench/fhirbench/pkg/health"
	"github.com/fhirbench/fhirbench/pkg/log"
	"github.com/fhirbench/fhirbench/pkg/types"
)

// State names one point in the per-server lifecycle.
type State string

const (
	StateCreated      State = "created"
	StateLaunching    State = "launching"
	StateReady        State = "ready"
	StateOperating    State = "operating"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
	StateFailed       State = "failed"
)

// shutdownGracePeriod is how long the down recipe gets after SIGTERM before
// the controller escalates to SIGKILL.
const shutdownGracePeriod = 10 * time.Second

// Controller drives one server descriptor through its lifecycle. It is not
// safe to reuse across servers; create one per server.
type Controller struct {
	server        types.ServerDescriptor
	healthConfig  health.Config
	launchTimeout time.Duration
	logger        zerolog.Logger

	// projectName is a unique identifier for this server's run, exported to
	// recipe scripts as FHIRBENCH_PROJECT so a Docker Compose (or similar)
	// recipe can scope its project name per invocation. This keeps teardown
	// idempotent even if a previous run's containers were left behind.
	projectName string

	// warmupSpent tracks whether this server's one-time warm-up discard has
	// already been handed out. Each Controller is created fresh per server
	// (see New), so this naturally scopes the discard to once per freshly
	// launched server rather than once per measurement.
	warmupSpent atomic.Bool

	mu    sync.Mutex
	state State
}

// New creates a Controller for the given server, using config for the
// readiness polling behaviour and launchTimeout as the overall launch
// deadline (default 2 minutes per the launch contract).
func New(server types.ServerDescriptor, healthConfig health.Config, launchTimeout time.Duration) *Controller {
	if launchTimeout <= 0 {
		launchTimeout = 2 * time.Minute
	}
	return &Controller{
		server:        server,
		healthConfig:  healthConfig,
		launchTimeout: launchTimeout,
		logger:        log.WithServer(server.ID),
		projectName:   server.ID + "-" + uuid.New().String(),
		state:         StateCreated,
	}
}

// recipeCmd builds a recipe child process with FHIRBENCH_PROJECT set in its
// environment, in addition to the inherited process environment.
func (c *Controller) recipeCmd(ctx context.Context, recipe string) *exec.Cmd {
	var cmd *exec.Cmd
	if ctx != nil {
		cmd = exec.CommandContext(ctx, "sh", "-c", recipe)
	} else {
		cmd = exec.Command("sh", "-c", recipe)
	}
	cmd.Env = append(os.Environ(), "FHIRBENCH_PROJECT="+c.projectName)
	return cmd
}

// NeedsWarmup reports whether the caller should discard the next
// measurement's first iteration as warm-up against this freshly launched
// server. It returns true exactly once per Controller; every subsequent
// call (for later operations or concurrency levels against the same
// server) returns false.
func (c *Controller) NeedsWarmup() bool {
	return c.warmupSpent.CompareAndSwap(false, true)
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Launch runs the server's "up" recipe and polls its metadata endpoint
// until it reports a stable run of successes, a readiness timeout elapses,
// or the recipe process exits with a non-zero status before becoming ready.
// A recipe that exits cleanly (for example one that starts detached
// containers) does not end the launch; polling continues until readiness or
// the deadline.
func (c *Controller) Launch(ctx context.Context) types.Phase {
	started := types.Now()
	c.setState(StateLaunching)
	c.logger.Info().Msg("launching server")

	cmd := c.recipeCmd(nil, c.server.LaunchRecipe)
	if err := cmd.Start(); err != nil {
		c.setState(StateFailed)
		c.logger.Error().Err(err).Msg("launch recipe failed to spawn")
		return failedPhase(started, fmt.Sprintf("spawn: %v", err))
	}

	recipeDone := make(chan error, 1)
	go func() { recipeDone <- cmd.Wait() }()

	checker := health.NewHTTPChecker(c.server.BaseURL + "/metadata").WithValidateBody(health.CapabilityStatementBody)
	status := health.NewStatus()
	deadline := time.Now().Add(c.launchTimeout)
	ticker := time.NewTicker(c.healthConfig.Interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, c.healthConfig.Timeout)
		result := checker.Check(checkCtx)
		cancel()
		status.Update(result, c.healthConfig)

		if status.Stable(c.healthConfig) {
			c.setState(StateReady)
			c.logger.Info().Msg("server ready")
			return okPhase(started)
		}

		if time.Now().After(deadline) {
			c.setState(StateFailed)
			c.logger.Error().Msg("readiness timeout")
			return failedPhase(started, "readiness_timeout")
		}

		select {
		case err := <-recipeDone:
			if err != nil {
				c.setState(StateFailed)
				c.logger.Error().Err(err).Msg("launch recipe exited before readiness")
				return failedPhase(started, fmt.Sprintf("exit_status: %v", err))
			}
			recipeDone = nil // clean exit: keep polling until ready or deadline
		case <-ctx.Done():
			c.setState(StateFailed)
			return failedPhase(started, fmt.Sprintf("launch cancelled: %v", ctx.Err()))
		case <-ticker.C:
		}
	}
}

// Reset invokes the server's per-operation state-reset callback, if it has
// one; on a server without one it does nothing and returns nil. Callers
// check HasReset themselves to skip operations that need an empty dataset.
func (c *Controller) Reset(ctx context.Context) error {
	if !c.server.HasReset() {
		return nil
	}
	c.setState(StateOperating)
	cmd := c.recipeCmd(ctx, c.server.ResetRecipe)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &types.OperationError{Kind: types.OperationHTTP, Cause: fmt.Errorf("reset recipe: %w (output: %s)", err, out)}
	}
	return nil
}

// Shutdown invokes the "down" recipe and guarantees it runs to completion
// (or is escalated to SIGKILL) regardless of why Shutdown was called —
// normal completion, launch failure, or external cancellation. It takes no
// caller context and bounds the recipe with its own timeout, since teardown
// must proceed even after the caller's context has been cancelled.
func (c *Controller) Shutdown(timeout time.Duration) types.Phase {
	started := types.Now()
	c.setState(StateShuttingDown)
	c.logger.Info().Msg("shutting down server")

	cmd := c.recipeCmd(nil, c.server.ShutdownRecipe)
	if err := cmd.Start(); err != nil {
		c.setState(StateFailed)
		return failedPhase(started, fmt.Sprintf("spawn: %v", err))
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if timeout <= 0 {
		timeout = shutdownGracePeriod
	}

	select {
	case err := <-done:
		return c.finishShutdown(started, err)
	case <-time.After(timeout):
		c.logger.Warn().Msg("down recipe exceeded grace period, sending SIGTERM")
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
		}
		select {
		case err := <-done:
			return c.finishShutdown(started, err)
		case <-time.After(shutdownGracePeriod):
			c.logger.Error().Msg("down recipe ignored SIGTERM, sending SIGKILL")
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			err := <-done
			c.setState(StateFailed)
			return failedPhase(started, fmt.Sprintf("down recipe force-killed: %v", err))
		}
	}
}

func (c *Controller) finishShutdown(started types.JSONTime, recipeErr error) types.Phase {
	if recipeErr != nil {
		c.setState(StateFailed)
		c.logger.Error().Err(recipeErr).Msg("down recipe exited with error")
		return failedPhase(started, fmt.Sprintf("exit_status: %v", recipeErr))
	}
	c.setState(StateStopped)
	return okPhase(started)
}

func okPhase(started types.JSONTime) types.Phase {
	return types.Phase{Started: started, Completed: types.Now(), Outcome: types.Ok()}
}

func failedPhase(started types.JSONTime, message string) types.Phase {
	return types.Phase{Started: started, Completed: types.Now(), Outcome: types.Errs(message)}
}
