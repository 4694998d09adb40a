package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fhirbench/fhirbench/pkg/types"
)

const (
	envIterations        = "BENCH_ITERATIONS"
	envConcurrencyLevels = "BENCH_CONCURRENCY_LEVELS"
	envPopulationSize    = "BENCH_POPULATION_SIZE"
	envOperationTimeout  = "BENCH_OPERATION_TIMEOUT_MS"
)

// Load builds a RunConfig from environment variables, starting from
// types.DefaultRunConfig for anything unset.
func Load() (types.RunConfig, error) {
	cfg := types.DefaultRunConfig()

	if v, ok := os.LookupEnv(envIterations); ok {
		n, err := parsePositiveInt(envIterations, v)
		if err != nil {
			return types.RunConfig{}, err
		}
		cfg.Iterations = n
	}

	if v, ok := os.LookupEnv(envOperationTimeout); ok {
		n, err := parsePositiveInt(envOperationTimeout, v)
		if err != nil {
			return types.RunConfig{}, err
		}
		cfg.OperationTimeoutMS = n
	}

	if v, ok := os.LookupEnv(envPopulationSize); ok {
		n, err := parsePositiveInt(envPopulationSize, v)
		if err != nil {
			return types.RunConfig{}, err
		}
		cfg.PopulationSize = n
	}

	if v, ok := os.LookupEnv(envConcurrencyLevels); ok {
		levels, err := parseConcurrencyLevels(v)
		if err != nil {
			return types.RunConfig{}, err
		}
		cfg.ConcurrencyLevels = levels
	}

	return cfg, nil
}

func parsePositiveInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &types.ConfigError{Field: field, Cause: err}
	}
	if n <= 0 {
		return 0, &types.ConfigError{Field: field, Cause: errPositive}
	}
	return n, nil
}

func parseConcurrencyLevels(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	levels := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := parsePositiveInt(envConcurrencyLevels, p)
		if err != nil {
			return nil, err
		}
		levels = append(levels, n)
	}
	if len(levels) == 0 {
		return nil, &types.ConfigError{Field: envConcurrencyLevels, Cause: errEmpty}
	}
	return levels, nil
}

var (
	errPositive = simpleError("value must be a positive integer")
	errEmpty    = simpleError("must list at least one concurrency level")
)

type simpleError string

func (e simpleError) Error() string { return string(e) }
