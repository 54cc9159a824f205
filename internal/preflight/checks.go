package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"slidecast/internal/backend"
	"slidecast/internal/config"
)

// MinFreeBytes is the free space below which the state disk check fails.
const MinFreeBytes = 64 << 20

// HealthChecker answers the backend health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CheckBackend verifies that the pipeline API answers its health endpoint.
// It uses a 5-second timeout and a single attempt.
func CheckBackend(ctx context.Context, api HealthChecker, baseURL string) Result {
	const name = "Backend API"

	if strings.TrimSpace(baseURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := api.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", baseURL, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", baseURL)}
}

// CheckLLMConfig verifies the script provider settings that the backend
// cannot infer on its own.
func CheckLLMConfig(cfg config.LLM) Result {
	const name = "Script provider"

	switch cfg.Provider {
	case "ollama":
		if strings.TrimSpace(cfg.OllamaBaseURL) == "" {
			return Result{Name: name, Detail: "ollama selected but ollama_base_url missing"}
		}
		return Result{Name: name, Passed: true, Detail: "ollama at " + cfg.OllamaBaseURL}
	case "":
		return Result{Name: name, Detail: "provider missing"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		// The backend may hold its own key, so this is advisory.
		return Result{Name: name, Passed: true, Detail: cfg.Provider + " (no api key; backend default used)"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Provider + " (api key set)"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (only %s free)", path, formatBytes(free))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, formatBytes(free))}
}

// CheckRenderer reports the avatar renderer state. A busy renderer passes;
// it only blocks avatar starts.
func CheckRenderer(ctx context.Context, source RendererSource) Result {
	const name = "Avatar renderer"

	renderer := FetchRendererStatus(ctx, source)
	if !renderer.Reachable {
		return Result{Name: name, Detail: renderer.Detail()}
	}
	if !renderer.Info.AvatarEnabled {
		return Result{Name: name, Detail: renderer.Detail()}
	}
	return Result{Name: name, Passed: true, Detail: renderer.Detail()}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out"
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("http %d", statusErr.StatusCode)
	}
	return err.Error()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
