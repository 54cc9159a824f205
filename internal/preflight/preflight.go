package preflight

import (
	"context"

	"slidecast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Backend is the subset of the pipeline API the checks use.
type Backend interface {
	HealthChecker
	RendererSource
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, api Backend) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory (always checked)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckFreeSpace("State disk space", cfg.Paths.StateDir, MinFreeBytes))

	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.StateDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckLLMConfig(cfg.LLM))

	if api == nil {
		return results
	}
	backendResult := CheckBackend(ctx, api, cfg.Backend.BaseURL)
	results = append(results, backendResult)

	// Renderer status is meaningless when the API itself is down.
	if backendResult.Passed {
		results = append(results, CheckRenderer(ctx, api))
	}
	return results
}
