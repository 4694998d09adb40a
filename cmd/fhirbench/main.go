package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fhirbench/fhirbench/pkg/bench"
	"github.com/fhirbench/fhirbench/pkg/config"
	"github.com/fhirbench/fhirbench/pkg/log"
	"github.com/fhirbench/fhirbench/pkg/manifest"
	"github.com/fhirbench/fhirbench/pkg/metrics"
	"github.com/fhirbench/fhirbench/pkg/operations"
	"github.com/fhirbench/fhirbench/pkg/sampledata"
	"github.com/fhirbench/fhirbench/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fhirbench",
	Short:   "Sequential throughput and latency benchmark harness for FHIR servers",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("fhirbench version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark against every server in the manifest and print the report as JSON",
	RunE:  runBenchmark,
}

func init() {
	runCmd.Flags().String("servers-file", "servers.yaml", "Path to the YAML server manifest")
	runCmd.Flags().String("sample-data-dir", "", "Directory of FHIR JSON sample resources for create operations (optional)")
	runCmd.Flags().String("debug-addr", "", "Address for the optional Prometheus debug endpoint, e.g. 127.0.0.1:9090 (disabled if empty)")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	serversFile, _ := cmd.Flags().GetString("servers-file")
	sampleDataDir, _ := cmd.Flags().GetString("sample-data-dir")
	debugAddr, _ := cmd.Flags().GetString("debug-addr")

	logger := log.WithComponent("cli")

	runConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading run configuration: %w", err)
	}

	servers, err := manifest.Load(serversFile)
	if err != nil {
		return fmt.Errorf("loading server manifest: %w", err)
	}

	var samples *sampledata.Set
	if sampleDataDir != "" {
		samples, err = sampledata.Load(sampleDataDir)
		if err != nil {
			return fmt.Errorf("loading sample data: %w", err)
		}
	}

	operationDescriptors, specs := operations.Builtins(samples)

	metadata := types.BenchmarkMetadata{
		CommitID:     Commit,
		BuildProfile: Version,
		CPUSummary:   fmt.Sprintf("%s/%s, %d CPUs", runtime.GOOS, runtime.GOARCH, runtime.NumCPU()),
	}

	coordinator := bench.New(runConfig, servers, operationDescriptors, specs, metadata)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if debugAddr != "" {
		stopDebug := startDebugServer(debugAddr, coordinator, logger)
		defer stopDebug()
	}

	report := coordinator.Run(ctx)

	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		return &types.SerialisationError{Op: "writing report", Cause: err}
	}

	if ctx.Err() != nil {
		logger.Warn().Msg("run was cancelled; report reflects partial results")
		return fmt.Errorf("benchmark cancelled: %w", ctx.Err())
	}

	return nil
}

func startDebugServer(addr string, provider metrics.StateProvider, logger zerolog.Logger) func() {
	collector := metrics.NewCollector(provider)
	collector.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("debug server error")
		}
	}()
	logger.Info().Str("addr", addr).Msg("debug endpoint listening")

	return func() {
		collector.Stop()
		_ = srv.Close()
	}
}
