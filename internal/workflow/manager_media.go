package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/services"
	"slidecast/internal/session"
	"slidecast/internal/stage"
)

// maxPhotoBytes bounds presenter photos before they are sent.
const maxPhotoBytes = 10 << 20

// SpeechOpening selects the opening narration for PreviewSpeech.
const SpeechOpening = "opening"

var photoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// TranslateScript replaces the script with its translation into language.
// The new script invalidates audio and everything downstream of it.
func (m *Manager) TranslateScript(ctx context.Context, language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		return services.Wrap(services.ErrValidation, "script", "translate", "target language is required", nil)
	}
	m.mu.Lock()
	fileID := m.sess.FileID
	script := m.sess.ScriptData
	step := m.nav.Current()
	m.mu.Unlock()
	if script == nil {
		return m.refuseScript(services.Wrap(services.ErrPrerequisite, "script", "translate", "generate a script first", nil))
	}
	if step != stage.StepScript {
		return m.refuseScript(services.Wrap(services.ErrPrerequisite, "script", "translate", "open the script step to translate", nil))
	}

	req := backend.TranslateRequest{
		FullScript:     fullScript(script),
		TargetLanguage: language,
		APIKey:         m.cfg.LLM.APIKey,
	}
	logger := m.logger.With(logging.String(logging.FieldFileID, fileID), logging.String("language", language))
	logger.Info("translating script")
	data, err := m.api.TranslateScript(services.WithStage(ctx, "script"), fileID, req)
	if err != nil {
		wrapped := services.Wrap(services.ErrStartFailed, "script", "translate", startFailureText(err), err)
		m.banner.ReportError("script", wrapped)
		return wrapped
	}

	var fx effects
	m.mu.Lock()
	if m.sess.FileID != fileID || m.sess.ScriptData != script {
		m.mu.Unlock()
		return services.Wrap(services.ErrStartFailed, "script", "translate", "script changed while translating", nil)
	}
	m.invalidateLocked(jobs.Audio, &fx)
	m.sess.ScriptData = &data
	m.persistLocked(ctx)
	m.mu.Unlock()
	fx.run()

	logger.Info("script translated", logging.Int("slides", len(data.SlideScripts)))
	return nil
}

// fullScript returns the script text sent for translation, rebuilding it
// from the sections when the backend did not supply one.
func fullScript(script *backend.ScriptData) string {
	if text := strings.TrimSpace(script.FullScript); text != "" {
		return text
	}
	parts := make([]string, 0, len(script.SlideScripts)+1)
	if text := strings.TrimSpace(script.Opening); text != "" {
		parts = append(parts, text)
	}
	for _, slide := range script.SlideScripts {
		parts = append(parts, fmt.Sprintf("--- Slide %s ---\n%s", slide.SlideNo, strings.TrimSpace(slide.Script)))
	}
	return strings.Join(parts, "\n\n")
}

// UploadAvatarPhoto sends a presenter photo and points the avatar settings
// at it, seeding the remaining settings from configuration when none exist.
func (m *Manager) UploadAvatarPhoto(ctx context.Context, path string) (backend.PhotoUpload, error) {
	kind := string(jobs.Avatar)
	info, err := os.Stat(path)
	if err != nil {
		return backend.PhotoUpload{}, services.Wrap(services.ErrValidation, kind, "upload photo", "", err)
	}
	if !photoExtensions[strings.ToLower(filepath.Ext(path))] {
		return backend.PhotoUpload{}, services.Wrap(services.ErrValidation, kind, "upload photo", "only JPG and PNG images are supported", nil)
	}
	if info.Size() > maxPhotoBytes {
		return backend.PhotoUpload{}, services.Wrap(services.ErrValidation, kind, "upload photo", "photo must be smaller than 10 MB", nil)
	}
	m.mu.Lock()
	fileID := m.sess.FileID
	m.mu.Unlock()
	if fileID == "" {
		return backend.PhotoUpload{}, services.Wrap(services.ErrPrerequisite, kind, "upload photo", "no active session", nil)
	}

	uploaded, err := m.api.UploadPhoto(ctx, path)
	if err != nil {
		wrapped := services.Wrap(services.ErrStartFailed, kind, "upload photo", startFailureText(err), err)
		m.banner.ReportError(kind, wrapped)
		return backend.PhotoUpload{}, wrapped
	}

	m.mu.Lock()
	var cfg session.AvatarConfig
	if current := m.sess.AvatarConfig; current != nil {
		cfg = *current
	} else {
		defaults := m.cfg.Avatar
		cfg = session.AvatarConfig{
			Emotion:       defaults.Emotion,
			CropScale:     defaults.CropScale,
			SamplingSteps: defaults.SamplingSteps,
			MaxSize:       defaults.MaxSize,
		}
	}
	m.mu.Unlock()
	cfg.PhotoID = uploaded.PhotoID
	if err := m.ConfigureAvatar(ctx, &cfg); err != nil {
		return uploaded, err
	}
	m.logger.Info("avatar photo uploaded",
		logging.String(logging.FieldFileID, fileID),
		logging.String("photo_id", uploaded.PhotoID),
	)
	return uploaded, nil
}

// Voices lists the text-to-speech voices for language (all when empty).
func (m *Manager) Voices(ctx context.Context, language string) ([]backend.Voice, error) {
	voices, err := m.api.Voices(ctx, language)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "tts", "list voices", startFailureText(err), err)
	}
	return voices, nil
}

// PreviewSpeech synthesizes one section of the script, the opening or a
// slide number, without touching any stage. An empty voice uses the
// configured one.
func (m *Manager) PreviewSpeech(ctx context.Context, section, voice string) (backend.SpeechResult, error) {
	m.mu.Lock()
	script := m.sess.ScriptData
	m.mu.Unlock()
	if script == nil {
		return backend.SpeechResult{}, services.Wrap(services.ErrPrerequisite, "tts", "preview", "generate a script first", nil)
	}
	text, ok := sectionText(script, section)
	if !ok {
		return backend.SpeechResult{}, services.Wrap(services.ErrValidation, "tts", "preview", fmt.Sprintf("no script section %q", section), nil)
	}
	text = cleanNarration(text)
	if text == "" {
		return backend.SpeechResult{}, services.Wrap(services.ErrValidation, "tts", "preview", fmt.Sprintf("script section %q is empty", section), nil)
	}

	req := backend.SpeechRequest{
		Text:  text,
		Voice: firstNonEmpty(voice, m.cfg.TTS.Voice),
		Rate:  m.cfg.TTS.Rate,
		Pitch: m.cfg.TTS.Pitch,
	}
	result, err := m.api.GenerateSpeech(services.WithStage(ctx, "tts"), req)
	if err != nil {
		wrapped := services.Wrap(services.ErrStartFailed, "tts", "preview", startFailureText(err), err)
		m.banner.ReportError("tts", wrapped)
		return backend.SpeechResult{}, wrapped
	}
	return result, nil
}

func sectionText(script *backend.ScriptData, section string) (string, bool) {
	section = strings.TrimSpace(section)
	if strings.EqualFold(section, SpeechOpening) {
		return script.Opening, true
	}
	for _, slide := range script.SlideScripts {
		if slide.SlideNo == section {
			return slide.Script, true
		}
	}
	return "", false
}

var (
	narrationMarkers  = regexp.MustCompile(`===.*?===|---.*?---|-{2,}`)
	narrationSymbols  = regexp.MustCompile(`[*()\[\]/]`)
	narrationEstimate = regexp.MustCompile(`\((?:約|大概)*\s*\d+\s*(?:秒|分鐘|seconds?|minutes?)\)`)
	narrationSpaces   = regexp.MustCompile(`\s+`)
)

// cleanNarration strips section headers, duration estimates, and markup
// characters that the speech engine would read aloud.
func cleanNarration(text string) string {
	text = narrationEstimate.ReplaceAllString(text, " ")
	text = narrationMarkers.ReplaceAllString(text, " ")
	text = narrationSymbols.ReplaceAllString(text, " ")
	return strings.TrimSpace(narrationSpaces.ReplaceAllString(text, " "))
}
