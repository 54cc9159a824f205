package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidecast/internal/services"
)

func TestClientGenerateScriptTagsFileID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate/f1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var cfg ScriptConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if cfg.DurationSec != 300 {
			t.Fatalf("expected duration 300, got %d", cfg.DurationSec)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"opening":       "hello",
			"slide_scripts": []map[string]any{{"slide_no": "1", "title": "Intro", "script": "welcome"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/api/")
	data, err := client.GenerateScript(context.Background(), "f1", ScriptConfig{DurationSec: 300})
	if err != nil {
		t.Fatalf("GenerateScript returned error: %v", err)
	}
	if data.FileID != "f1" {
		t.Fatalf("expected file_id f1, got %q", data.FileID)
	}
	if len(data.SlideScripts) != 1 || data.SlideScripts[0].Script != "welcome" {
		t.Fatalf("unexpected slide scripts: %+v", data.SlideScripts)
	}
}

func TestClientStartAssembleSendsEmptyVideoPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"video_paths":[]`) {
			t.Fatalf("expected empty video_paths array, got %s", body)
		}
		_ = json.NewEncoder(w).Encode(JobAccepted{JobID: "asm-1", Status: "pending"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	accepted, err := client.StartAssemble(context.Background(), AssembleRequest{FileID: "f1", AudioPaths: []string{"a1.mp3"}})
	if err != nil {
		t.Fatalf("StartAssemble returned error: %v", err)
	}
	if accepted.JobID != "asm-1" {
		t.Fatalf("unexpected job id %q", accepted.JobID)
	}
}

func TestClientStartJobRequiresJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.StartBatchAudio(context.Background(), BatchAudioRequest{}); err == nil {
		t.Fatal("expected error for missing job_id")
	}
}

func TestClientSurfacesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "avatar renderer busy"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.StartAvatarBatch(context.Background(), AvatarBatchRequest{PhotoID: "p1"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusConflict || statusErr.Detail != "avatar renderer busy" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestClientStatusTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, WithTimeouts(time.Second, 20*time.Millisecond))
	_, err := client.JobStatus(context.Background(), "job-1")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestClientJobStatusPaths(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(JobStatus{Status: StatusProcessing, Progress: 40})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.JobStatus(context.Background(), "a"); err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	status, err := client.AvatarJobStatus(context.Background(), "b")
	if err != nil {
		t.Fatalf("AvatarJobStatus: %v", err)
	}
	if status.Progress != 40 || status.Terminal() {
		t.Fatalf("unexpected status %+v", status)
	}
	want := []string{"/ppt/job/a/status", "/avatar/job/b/status"}
	for i, path := range want {
		if paths[i] != path {
			t.Fatalf("request %d: expected %s, got %s", i, path, paths[i])
		}
	}
}

func TestClientUploadMultipart(t *testing.T) {
	dir := t.TempDir()
	deck := filepath.Join(dir, "deck.pptx")
	if err := os.WriteFile(deck, []byte("pptx-bytes"), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "deck.pptx" || string(data) != "pptx-bytes" {
			t.Fatalf("unexpected upload %s %q", header.Filename, data)
		}
		_ = json.NewEncoder(w).Encode(UploadResult{Success: true, FileID: "f1"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Upload(context.Background(), deck)
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if result.FileID != "f1" {
		t.Fatalf("unexpected file id %q", result.FileID)
	}
}

func TestJobResultVideosSkipsEmpty(t *testing.T) {
	result := &JobResult{Results: []string{"v1.mp4", "", "v3.mp4"}}
	videos := result.Videos()
	if len(videos) != 2 || videos[0] != "v1.mp4" || videos[1] != "v3.mp4" {
		t.Fatalf("unexpected videos %v", videos)
	}
	var missing *JobResult
	if missing.Videos() != nil {
		t.Fatal("expected nil videos for nil result")
	}
}

func TestClientUploadPhotoMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/avatar/upload-photo" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("read form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "host.png" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"photo_id":   "host.png",
			"photo_url":  "/uploads/host.png",
			"validation": map[string]any{"valid": true},
		})
	}))
	defer server.Close()

	photo := filepath.Join(t.TempDir(), "host.png")
	if err := os.WriteFile(photo, []byte("png"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	result, err := NewClient(server.URL + "/api").UploadPhoto(context.Background(), photo)
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}
	if result.PhotoID != "host.png" || result.PhotoURL != "/uploads/host.png" {
		t.Fatalf("unexpected photo upload %+v", result)
	}
}

func TestClientTranslateScriptTagsFileID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req TranslateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.FullScript != "hola" || req.TargetLanguage != "English" {
			t.Fatalf("unexpected translate request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"opening":       "hello",
			"slide_scripts": []map[string]any{{"slide_no": "1", "title": "Intro", "script": "hi"}},
			"full_script":   "hello hi",
		})
	}))
	defer server.Close()

	data, err := NewClient(server.URL).TranslateScript(context.Background(), "f1", TranslateRequest{FullScript: "hola", TargetLanguage: "English"})
	if err != nil {
		t.Fatalf("TranslateScript returned error: %v", err)
	}
	if data.FileID != "f1" || data.FullScript != "hello hi" {
		t.Fatalf("unexpected script %+v", data)
	}
}

func TestClientVoicesAndSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tts/voices":
			if got := r.URL.Query().Get("language"); got != "en" {
				t.Fatalf("unexpected language %q", got)
			}
			_ = json.NewEncoder(w).Encode([]Voice{{ShortName: "en-US-AriaNeural", Gender: "Female", Locale: "en-US"}})
		case r.Method == http.MethodPost && r.URL.Path == "/tts/generate":
			var req SpeechRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Text != "hello" || req.Voice != "en-US-AriaNeural" {
				t.Fatalf("unexpected speech request %+v", req)
			}
			_ = json.NewEncoder(w).Encode(SpeechResult{Filename: "s.mp3", URLPath: "/output/s.mp3"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	voices, err := client.Voices(context.Background(), "en")
	if err != nil || len(voices) != 1 || voices[0].ShortName != "en-US-AriaNeural" {
		t.Fatalf("Voices = %+v, %v", voices, err)
	}
	result, err := client.GenerateSpeech(context.Background(), SpeechRequest{Text: "hello", Voice: "en-US-AriaNeural"})
	if err != nil || result.URLPath != "/output/s.mp3" {
		t.Fatalf("GenerateSpeech = %+v, %v", result, err)
	}
}
