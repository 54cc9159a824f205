package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/backend"
	"slidecast/internal/config"
	"slidecast/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("disk", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("disk", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure with an impossible minimum")
	}
	if result := CheckFreeSpace("disk", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckLLMConfig(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.LLM
		passed bool
	}{
		{name: "gemini with key", cfg: config.LLM{Provider: "gemini", APIKey: "k"}, passed: true},
		{name: "gemini without key", cfg: config.LLM{Provider: "gemini"}, passed: true},
		{name: "ollama without url", cfg: config.LLM{Provider: "ollama"}, passed: false},
		{name: "ollama with url", cfg: config.LLM{Provider: "ollama", OllamaBaseURL: "http://localhost:11434"}, passed: true},
		{name: "missing provider", cfg: config.LLM{}, passed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckLLMConfig(tt.cfg); got.Passed != tt.passed {
				t.Fatalf("Passed = %v, want %v (%s)", got.Passed, tt.passed, got.Detail)
			}
		})
	}
}

func TestCheckBackend(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	client := backend.NewClient(fb.URL())

	result := CheckBackend(context.Background(), client, fb.URL())
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	down := backend.NewClient("http://127.0.0.1:1/api")
	if result := CheckBackend(context.Background(), down, "http://127.0.0.1:1/api"); result.Passed {
		t.Fatal("expected failure for unreachable backend")
	}
	if result := CheckBackend(context.Background(), client, ""); result.Passed || result.Detail != "missing url" {
		t.Fatalf("expected missing url failure, got %+v", result)
	}
}

type stubRenderer struct {
	info backend.SystemInfo
	err  error
}

func (s stubRenderer) SystemInfo(context.Context) (backend.SystemInfo, error) { return s.info, s.err }

func TestRendererStatusDetail(t *testing.T) {
	tests := []struct {
		name   string
		source stubRenderer
		want   string
		passed bool
	}{
		{
			name:   "idle cuda",
			source: stubRenderer{info: backend.SystemInfo{AvatarEnabled: true, CUDAAvailable: true, GPUName: "RTX 4090", ModelLoaded: true}},
			want:   "Idle [CUDA RTX 4090, model loaded]",
			passed: true,
		},
		{
			name:   "busy",
			source: stubRenderer{info: backend.SystemInfo{AvatarEnabled: true, IsGenerating: true, BusyMessage: "rendering"}},
			want:   "Busy: rendering [CPU, model not loaded]",
			passed: true,
		},
		{
			name:   "disabled",
			source: stubRenderer{info: backend.SystemInfo{Message: "no gpu"}},
			want:   "Disabled (no gpu)",
		},
		{
			name:   "unreachable",
			source: stubRenderer{err: errors.New("connection refused")},
			want:   "Unreachable (connection refused)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := FetchRendererStatus(context.Background(), tt.source)
			if got := renderer.Detail(); got != tt.want {
				t.Fatalf("Detail() = %q, want %q", got, tt.want)
			}
			if got := CheckRenderer(context.Background(), tt.source); got.Passed != tt.passed {
				t.Fatalf("CheckRenderer passed = %v, want %v", got.Passed, tt.passed)
			}
		})
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_WithBackend(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.SetSystemInfo(backend.SystemInfo{AvatarEnabled: true})
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fb.URL()))

	results := RunAll(context.Background(), cfg, backend.NewClient(fb.URL()))
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"State directory", "Backend API", "Avatar renderer"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %s", want, joined)
		}
	}
}
