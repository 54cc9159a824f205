package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/poller"
	"slidecast/internal/services"
	"slidecast/internal/session"
	"slidecast/internal/stage"
)

// Upload sends a deck, waits for slide parsing to finish, and starts a new
// session on the slides step. Any saved session is cleared first.
func (m *Manager) Upload(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, UpdateUpload, "stat", "", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, UpdateUpload, "stat", path+" is a directory", nil)
	}

	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clear saved session failed", logging.Error(err))
	}

	logger := m.logger.With(logging.String("file", filepath.Base(path)))
	logger.Info("uploading presentation")
	uploaded, err := m.api.Upload(ctx, path)
	if err != nil {
		wrapped := services.Wrap(services.ErrStartFailed, UpdateUpload, "upload", startFailureText(err), err)
		m.banner.ReportError(UpdateUpload, wrapped)
		return wrapped
	}
	fileID := uploaded.FileID
	logger = logger.With(logging.String(logging.FieldFileID, fileID))

	sink := &parseSink{m: m, slides: uploaded.Slides}
	fetch := func(ctx context.Context) (backend.JobStatus, error) {
		ps, err := m.api.ParseStatus(ctx, fileID)
		if err != nil {
			return backend.JobStatus{}, err
		}
		if len(ps.Slides) > 0 {
			sink.slides = ps.Slides
		}
		status := backend.JobStatus{Status: ps.Status, Progress: ps.Progress, Message: ps.Message}
		if status.Status == backend.StatusFailed && status.Message == "" {
			status.Error = "slide parsing failed"
		}
		return status, nil
	}
	task := poller.Start(services.WithJobID(ctx, fileID), fetch, sink, poller.Options{Interval: m.pollInterval, Logger: m.logger})
	switch outcome := task.Wait(); outcome {
	case poller.OutcomeCompleted:
	case poller.OutcomeFailed:
		m.banner.Report(notifications.NoticeFromError(UpdateUpload, sink.failure, sink.cause))
		return sink.cause
	default:
		return services.Wrap(services.ErrPollFailed, UpdateUpload, "parse", "upload "+string(outcome), ctx.Err())
	}

	var fx effects
	m.mu.Lock()
	m.sess = session.Session{
		FileID:   fileID,
		Slides:   sink.slides,
		FileMeta: &session.FileMeta{Name: filepath.Base(path), Size: info.Size()},
	}
	tr := m.nav.Set(stage.StepSlides)
	m.persistLocked(ctx)
	m.emit(&fx, Update{Kind: UpdateStep, Step: tr.To})
	m.mu.Unlock()
	fx.run()

	logger.Info("presentation parsed", logging.Int("slides", len(sink.slides)))
	return nil
}

// parseSink collects slide parsing progress for Upload. Parsing has no
// competing job id, so results are never stale.
type parseSink struct {
	m       *Manager
	slides  []backend.Slide
	failure string
	cause   error
}

func (p *parseSink) Apply(status backend.JobStatus) bool {
	if p.m.observer != nil {
		p.m.observer(Update{
			Kind:    UpdateUpload,
			State:   stage.State{Status: stage.StatusProcessing, Progress: status.Progress, Message: status.Message},
			Message: status.Message,
		})
	}
	return true
}

func (p *parseSink) Fail(message string, cause error) bool {
	p.failure = message
	p.cause = cause
	return true
}

// GenerateScript asks the backend for narration and moves to the script step.
func (m *Manager) GenerateScript(ctx context.Context, req backend.ScriptConfig) error {
	m.mu.Lock()
	fileID := m.sess.FileID
	step := m.nav.Current()
	m.mu.Unlock()
	if fileID == "" {
		return m.refuseScript(services.Wrap(services.ErrPrerequisite, "script", "generate", "upload a presentation first", nil))
	}
	if step != stage.StepSlides && step != stage.StepScript {
		return m.refuseScript(services.Wrap(services.ErrPrerequisite, "script", "generate", "open the slides step to generate a script", nil))
	}

	llm := m.cfg.LLM
	req.Provider = firstNonEmpty(req.Provider, llm.Provider)
	req.Model = firstNonEmpty(req.Model, llm.Model)
	req.APIKey = firstNonEmpty(req.APIKey, llm.APIKey)
	req.OllamaBaseURL = firstNonEmpty(req.OllamaBaseURL, llm.OllamaBaseURL)
	req.SystemPrompt = firstNonEmpty(req.SystemPrompt, llm.SystemPrompt)

	logger := m.logger.With(logging.String(logging.FieldFileID, fileID), logging.String("provider", req.Provider))
	logger.Info("generating script", logging.Int("duration_sec", req.DurationSec))
	data, err := m.api.GenerateScript(services.WithStage(ctx, "script"), fileID, req)
	if err != nil {
		wrapped := services.Wrap(services.ErrStartFailed, "script", "generate", startFailureText(err), err)
		m.banner.ReportError("script", wrapped)
		return wrapped
	}

	var fx effects
	m.mu.Lock()
	if m.sess.FileID != fileID {
		m.mu.Unlock()
		return services.Wrap(services.ErrStartFailed, "script", "generate", "session changed while generating", nil)
	}
	if m.sess.ScriptData != nil {
		m.invalidateLocked(jobs.Audio, &fx)
	}
	m.sess.ScriptData = &data
	tr := m.nav.Set(stage.StepScript)
	m.persistLocked(ctx)
	m.emit(&fx, Update{Kind: UpdateStep, Step: tr.To})
	m.mu.Unlock()
	fx.run()

	logger.Info("script generated", logging.Int("slides", len(data.SlideScripts)))
	return nil
}

// ClearScript drops the generated script, resets every stage that depends
// on it, and returns to the slides step.
func (m *Manager) ClearScript(ctx context.Context) error {
	var fx effects
	m.mu.Lock()
	if m.sess.FileID == "" {
		m.mu.Unlock()
		return services.Wrap(services.ErrPrerequisite, "script", "clear", "no active session", nil)
	}
	m.sess.ScriptData = nil
	m.invalidateLocked(jobs.Audio, &fx)
	m.applyTransitionLocked(m.nav.Set(stage.StepSlides), &fx)
	m.persistLocked(ctx)
	m.mu.Unlock()
	fx.run()
	return nil
}

// ConfigureAvatar sets or, with nil, clears the avatar render settings.
// Changing them resets the avatar stage and its dependents.
func (m *Manager) ConfigureAvatar(ctx context.Context, cfg *session.AvatarConfig) error {
	if cfg != nil && strings.TrimSpace(cfg.PhotoID) == "" {
		return services.Wrap(services.ErrValidation, string(jobs.Avatar), "configure", "photo id is required", nil)
	}
	var fx effects
	m.mu.Lock()
	if m.sess.FileID == "" {
		m.mu.Unlock()
		return services.Wrap(services.ErrPrerequisite, string(jobs.Avatar), "configure", "no active session", nil)
	}
	if cfg != nil {
		copied := *cfg
		cfg = &copied
	}
	m.sess.AvatarConfig = cfg
	m.invalidateLocked(jobs.Avatar, &fx)
	m.persistLocked(ctx)
	m.mu.Unlock()
	fx.run()
	return nil
}

// SavedSession returns the stored session without resuming it.
func (m *Manager) SavedSession(ctx context.Context) (session.Session, bool, error) {
	return m.store.Load(ctx)
}

// Resume replaces the in-memory wizard with the saved session verbatim,
// including job handles that may no longer be current. Stages that were
// processing get a poller again; the staleness check makes outdated ids
// harmless.
func (m *Manager) Resume(ctx context.Context) (session.Session, error) {
	saved, ok, err := m.store.Load(ctx)
	if err != nil {
		return session.Session{}, err
	}
	if !ok {
		return session.Session{}, services.Wrap(services.ErrNotFound, "session", "resume", "no saved session", nil)
	}

	var fx effects
	m.mu.Lock()
	m.resetLocked()
	m.sess = saved
	m.registry.Restore(saved.Jobs)
	for _, kind := range jobs.Kinds {
		state := saved.Stage(kind)
		id, hasJob := m.registry.Get(kind)
		switch {
		case state.Status == stage.StatusProcessing && !hasJob:
			state = stage.Idle()
		case state.IsIdle() && hasJob && len(saved.Stages) == 0:
			state = stage.State{Status: stage.StatusProcessing, Trigger: stage.TriggerStage}
		}
		m.stages[kind] = state
		if state.Status == stage.StatusProcessing {
			m.attachLocked(kind, id)
		}
	}
	m.nav.Set(saved.CurrentStep)
	if m.nav.Current() == stage.StepAvatar {
		m.startBusyLocked()
	}
	m.emit(&fx, Update{Kind: UpdateStep, Step: m.nav.Current()})
	m.mu.Unlock()
	fx.run()

	m.logger.Info("session resumed",
		logging.String(logging.FieldFileID, saved.FileID),
		logging.Int("step", saved.CurrentStep),
		logging.String("jobs", saved.Jobs.String()),
	)
	return saved, nil
}

// Discard deletes the saved session and its uploaded file. When the saved
// session is also the active one the wizard is reset as well.
func (m *Manager) Discard(ctx context.Context) error {
	saved, ok, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	active := m.sess.FileID
	m.mu.Unlock()
	if ok && saved.FileID == active {
		return m.Reset(ctx)
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear saved session: %w", err)
	}
	if ok {
		m.deleteRemote(ctx, saved.FileID)
	}
	return nil
}

// Reset abandons the active session, deletes its uploaded file, clears the
// store, and returns to the upload step.
func (m *Manager) Reset(ctx context.Context) error {
	var fx effects
	m.mu.Lock()
	fileID := m.sess.FileID
	m.resetLocked()
	m.emit(&fx, Update{Kind: UpdateStep, Step: m.nav.Current()})
	m.mu.Unlock()
	fx.run()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear saved session: %w", err)
	}
	m.banner.Dismiss()
	if fileID != "" {
		m.deleteRemote(ctx, fileID)
	}
	return nil
}

// deleteRemote removes an uploaded file. Failure is logged, not returned.
func (m *Manager) deleteRemote(ctx context.Context, fileID string) {
	if err := m.api.DeleteFile(ctx, fileID); err != nil {
		m.logger.Warn("delete uploaded file failed",
			logging.String(logging.FieldFileID, fileID),
			logging.Error(err),
		)
		return
	}
	m.logger.Info("uploaded file deleted", logging.String(logging.FieldFileID, fileID))
}

func (m *Manager) refuseScript(err error) error {
	m.banner.ReportError("script", err)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
