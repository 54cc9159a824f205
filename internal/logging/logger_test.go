package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("wizard started", logging.String(logging.FieldComponent, "wizard"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "slidecast.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "INFO wizard: wizard started") {
		t.Fatalf("unexpected console line: %q", data)
	}
}

func TestConsoleLoggerFlattensGroupsAndQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("poll", logging.String("message", "two words"), slogGroup())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `message="two words"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if !strings.Contains(line, "job.progress=40") {
		t.Fatalf("expected flattened group key, got %q", line)
	}
	if strings.Contains(line, "[logger_test.go") {
		t.Fatalf("info logs should omit source, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithStage(context.Background(), "audio")
	ctx = services.WithJobID(ctx, "job-1")
	ctx = services.WithRequestID(ctx, "req-9")
	logging.WithContext(ctx, logger).Warn("job failed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, data)
	}
	if record["level"] != "warn" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["stage"] != "audio" || record["job_id"] != "job-1" || record["correlation_id"] != "req-9" {
		t.Fatalf("missing context fields: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func slogGroup() logging.Attr {
	return slog.Group("job", slog.Int("progress", 40))
}

func TestArgsCarryListValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	attrs := []logging.Attr{
		logging.Strings("video_paths", []string{"a1.mp4", "a2.mp4"}),
		logging.Bool("interactive", false),
	}
	logger.Info("update ppt", logging.Args(attrs...)...)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, data)
	}
	paths, ok := record["video_paths"].([]any)
	if !ok || len(paths) != 2 || paths[1] != "a2.mp4" {
		t.Fatalf("unexpected video_paths %v", record["video_paths"])
	}
	if record["interactive"] != false {
		t.Fatalf("unexpected interactive %v", record["interactive"])
	}
}
