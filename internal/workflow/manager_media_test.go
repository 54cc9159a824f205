package workflow

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/services"
)

func TestTranslateScriptReplacesScriptAndResetsAudio(t *testing.T) {
	h := newHarness(t)
	h.resume(withAudio(sessionAt(3), "a-1", "a1.mp3"))
	h.fb.SetTranslation(backend.ScriptData{
		Opening:      "Welcome",
		SlideScripts: []backend.SlideScript{{SlideNo: "1", Title: "Intro", Script: "hello in English"}},
		FullScript:   "Welcome hello in English",
	})

	if err := h.m.TranslateScript(context.Background(), "English"); err != nil {
		t.Fatalf("TranslateScript: %v", err)
	}
	sess := h.m.Session()
	if sess.ScriptData == nil || sess.ScriptData.FileID != "f1" || sess.ScriptData.SlideScripts[0].Script != "hello in English" {
		t.Fatalf("script not replaced: %+v", sess.ScriptData)
	}
	if sess.CurrentStep != 3 {
		t.Fatalf("translation must not move the wizard, step %d", sess.CurrentStep)
	}
	if sess.Jobs.Audio != nil || !sess.Stage(jobs.Audio).IsIdle() {
		t.Fatalf("audio not reset after translation: %+v", sess.Stage(jobs.Audio))
	}
	req, ok := h.fb.Last(http.MethodPost, "/translate")
	if !ok {
		t.Fatal("translate request not sent")
	}
	if req.Body["target_language"] != "English" || req.Body["full_script"] == "" {
		t.Fatalf("unexpected translate body %v", req.Body)
	}
	saved, ok, err := h.store.Load(context.Background())
	if err != nil || !ok || saved.ScriptData.SlideScripts[0].Script != "hello in English" {
		t.Fatalf("translation not persisted: ok=%v err=%v", ok, err)
	}
}

func TestTranslateScriptRequiresScriptStep(t *testing.T) {
	h := newHarness(t)
	h.resume(sessionAt(4))

	err := h.m.TranslateScript(context.Background(), "English")
	if !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}
	if h.fb.Count(http.MethodPost, "/translate") != 0 {
		t.Fatal("refused translation reached the backend")
	}
	if notice, ok := h.m.Banner().Current(); !ok || notice.Stage != "script" {
		t.Fatalf("expected a script notice, got %+v", notice)
	}
}

func TestUploadAvatarPhotoSetsPhotoID(t *testing.T) {
	h := newHarness(t)
	h.resume(withCompleted(withAudio(withAvatar(sessionAt(6)), "a-1", "a1.mp3"), jobs.Avatar, "v-1", &backend.JobResult{VideoFiles: []string{"a1.mp4"}}))

	photo := filepath.Join(t.TempDir(), "host.png")
	if err := os.WriteFile(photo, []byte("png"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	uploaded, err := h.m.UploadAvatarPhoto(context.Background(), photo)
	if err != nil {
		t.Fatalf("UploadAvatarPhoto: %v", err)
	}
	if uploaded.PhotoID != "host.png" {
		t.Fatalf("unexpected photo id %q", uploaded.PhotoID)
	}
	cfg := h.m.Session().AvatarConfig
	if cfg == nil || cfg.PhotoID != "host.png" || cfg.Emotion != 4 || cfg.MaxSize != 480 {
		t.Fatalf("unexpected avatar config %+v", cfg)
	}
	if !h.m.View().Stage(jobs.Avatar).State.IsIdle() {
		t.Fatal("new photo must reset the avatar stage")
	}
}

func TestUploadAvatarPhotoSeedsDefaults(t *testing.T) {
	h := newHarness(t)
	h.resume(sessionAt(4))

	photo := filepath.Join(t.TempDir(), "host.jpg")
	if err := os.WriteFile(photo, []byte("jpg"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	if _, err := h.m.UploadAvatarPhoto(context.Background(), photo); err != nil {
		t.Fatalf("UploadAvatarPhoto: %v", err)
	}
	cfg := h.m.Session().AvatarConfig
	if cfg == nil || cfg.PhotoID != "host.jpg" || cfg.SamplingSteps != h.cfg.Avatar.SamplingSteps {
		t.Fatalf("unexpected avatar config %+v", cfg)
	}
}

func TestUploadAvatarPhotoRejectsUnsupportedFile(t *testing.T) {
	h := newHarness(t)
	h.resume(sessionAt(4))

	photo := filepath.Join(t.TempDir(), "host.gif")
	if err := os.WriteFile(photo, []byte("gif"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	if _, err := h.m.UploadAvatarPhoto(context.Background(), photo); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.fb.Count(http.MethodPost, "/avatar/upload-photo") != 0 {
		t.Fatal("rejected photo reached the backend")
	}
	if h.m.Session().AvatarConfig != nil {
		t.Fatal("rejected photo must not configure the avatar")
	}
}

func TestPreviewSpeechCleansSectionText(t *testing.T) {
	h := newHarness(t)
	sess := sessionAt(3)
	sess.ScriptData.SlideScripts[1].Script = "--- Slide 2 --- Next *steps* (30 seconds) [plan]"
	h.resume(sess)

	result, err := h.m.PreviewSpeech(context.Background(), "2", "")
	if err != nil {
		t.Fatalf("PreviewSpeech: %v", err)
	}
	if result.URLPath != "/output/preview.mp3" {
		t.Fatalf("unexpected result %+v", result)
	}
	req, ok := h.fb.Last(http.MethodPost, "/tts/generate")
	if !ok {
		t.Fatal("speech request not sent")
	}
	if req.Body["text"] != "Next steps plan" || req.Body["voice"] != h.cfg.TTS.Voice {
		t.Fatalf("unexpected speech body %v", req.Body)
	}

	if _, err := h.m.PreviewSpeech(context.Background(), "9", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for a missing slide, got %v", err)
	}
	if _, err := h.m.PreviewSpeech(context.Background(), "opening", "en-US-AriaNeural"); err != nil {
		t.Fatalf("PreviewSpeech opening: %v", err)
	}
	if req, _ := h.fb.Last(http.MethodPost, "/tts/generate"); req.Body["voice"] != "en-US-AriaNeural" || req.Body["text"] != "Welcome" {
		t.Fatalf("unexpected opening body %v", req.Body)
	}
}

func TestVoicesFiltersByLanguage(t *testing.T) {
	h := newHarness(t)
	voices, err := h.m.Voices(context.Background(), "en")
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 1 || voices[0].ShortName != "en-US-AriaNeural" {
		t.Fatalf("unexpected voices %+v", voices)
	}
}

func TestCleanNarration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "=== Opening === Hello", want: "Hello"},
		{in: "Welcome (約 30 秒) everyone", want: "Welcome everyone"},
		{in: "a -- b / c", want: "a b c"},
		{in: "  plain text  ", want: "plain text"},
	}
	for _, tt := range tests {
		if got := cleanNarration(tt.in); got != tt.want {
			t.Fatalf("cleanNarration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
