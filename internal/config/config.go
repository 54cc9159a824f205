package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Backend contains connection settings for the pipeline backend.
type Backend struct {
	BaseURL              string `toml:"base_url"`
	StartTimeoutSeconds  int    `toml:"start_timeout_seconds"`
	StatusTimeoutSeconds int    `toml:"status_timeout_seconds"`
}

// LLM contains the script-generation provider settings forwarded to the backend.
type LLM struct {
	Provider      string `toml:"provider"`
	Model         string `toml:"model"`
	APIKey        string `toml:"api_key"`
	OllamaBaseURL string `toml:"ollama_base_url"`
	SystemPrompt  string `toml:"system_prompt"`
}

// TTS contains the voice parameters used for batch audio generation.
type TTS struct {
	Voice string `toml:"voice"`
	Rate  string `toml:"rate"`
	Pitch string `toml:"pitch"`
}

// Avatar contains the default talking-avatar render parameters.
type Avatar struct {
	PhotoID       string  `toml:"photo_id"`
	Emotion       int     `toml:"emotion"`
	CropScale     float64 `toml:"crop_scale"`
	SamplingSteps int     `toml:"sampling_steps"`
	MaxSize       int     `toml:"max_size"`
}

// Workflow contains polling cadences.
type Workflow struct {
	PollIntervalMillis      int `toml:"poll_interval_ms"`
	BusyPollIntervalSeconds int `toml:"busy_poll_interval_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completions    bool   `toml:"completions"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slidecast.
//
// Configuration sections by subsystem:
//   - Paths: session state and log directories
//   - Backend: pipeline API location and request timeouts
//   - LLM: script generation provider forwarded to the backend
//   - TTS: voice settings for batch audio
//   - Avatar: talking-avatar render defaults
//   - Workflow: job and system-busy polling cadence
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	LLM           LLM           `toml:"llm"`
	TTS           TTS           `toml:"tts"`
	Avatar        Avatar        `toml:"avatar"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slidecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slidecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionDBPath returns the SQLite file holding the saved wizard session.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Paths.StateDir, "session.db")
}

// LogPath returns the slidecast log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "slidecast.log")
}

// LockPath returns the lock file guarding single-client access to the state dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "wizard.lock")
}

// StartTimeout bounds job-start, script, and upload requests.
func (c *Config) StartTimeout() time.Duration {
	return time.Duration(c.Backend.StartTimeoutSeconds) * time.Second
}

// StatusTimeout bounds status, system-info, and other short requests.
func (c *Config) StatusTimeout() time.Duration {
	return time.Duration(c.Backend.StatusTimeoutSeconds) * time.Second
}

// PollInterval is the delay between job status fetches.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollIntervalMillis) * time.Millisecond
}

// BusyPollInterval is the delay between avatar system-info checks.
func (c *Config) BusyPollInterval() time.Duration {
	return time.Duration(c.Workflow.BusyPollIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
