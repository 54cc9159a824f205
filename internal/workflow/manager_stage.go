package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/poller"
	"slidecast/internal/services"
	"slidecast/internal/stage"
)

type startCall func(ctx context.Context) (backend.JobAccepted, error)

// Start begins kind from its own wizard step. It is refused without any
// network call when the stage is not idle, a start is already in flight, or
// prerequisites are unmet. A failed start request leaves the stage idle.
func (m *Manager) Start(ctx context.Context, kind jobs.Kind, opts StartOptions) error {
	ctx = startContext(ctx, kind)

	m.mu.Lock()
	err := m.checkStartLocked(kind, true)
	needBusy := err == nil && kind == jobs.Avatar && !m.busy.Known
	m.mu.Unlock()
	if err != nil {
		return m.refuse(kind, err)
	}
	if needBusy {
		m.refreshBusy(ctx)
	}

	m.mu.Lock()
	if err := m.checkStartLocked(kind, false); err != nil {
		m.mu.Unlock()
		return m.refuse(kind, err)
	}
	call := m.buildStartLocked(kind, opts)
	return m.launchLocked(ctx, kind, stage.TriggerStage, call)
}

// UpdatePPT re-runs assembly from the avatar step with video paths inferred
// from the completed audio files. Videos may be rendered outside this
// client, so the backend is left to check that they exist.
func (m *Manager) UpdatePPT(ctx context.Context) error {
	kind := jobs.Assemble
	ctx = startContext(ctx, kind)

	m.mu.Lock()
	if m.nav.Current() != stage.StepAvatar {
		m.mu.Unlock()
		return m.refuse(kind, services.Wrap(services.ErrPrerequisite, string(kind), "update ppt", "open the avatar step first", nil))
	}
	if m.starting[kind] {
		m.mu.Unlock()
		return m.refuse(kind, services.Wrap(services.ErrPrerequisite, string(kind), "update ppt", "assembly start already in progress", nil))
	}
	if m.sess.ScriptData == nil {
		m.mu.Unlock()
		return m.refuse(kind, services.Wrap(services.ErrPrerequisite, string(kind), "update ppt", "no script available", nil))
	}
	audioFiles := m.stageLocked(jobs.Audio).AudioFiles()
	videoPaths := InferVideoPaths(audioFiles)
	if len(videoPaths) == 0 {
		videoPaths = m.stageLocked(jobs.Avatar).Result.Videos()
	}
	if len(videoPaths) == 0 {
		m.mu.Unlock()
		return m.refuse(kind, services.Wrap(services.ErrPrerequisite, string(kind), "update ppt", "no audio files to infer video paths from; finish audio first", nil))
	}
	req := m.assembleRequestLocked(audioFiles, videoPaths)
	m.logger.Info("update ppt inferred video paths",
		logging.String(logging.FieldFileID, m.sess.FileID),
		logging.Strings("video_paths", videoPaths),
	)
	call := func(ctx context.Context) (backend.JobAccepted, error) {
		return m.api.StartAssemble(ctx, req)
	}
	return m.launchLocked(ctx, kind, stage.TriggerUpdatePPT, call)
}

// InferVideoPaths maps each audio path to the video path the avatar renderer
// writes for it by swapping the extension for .mp4.
func InferVideoPaths(audioFiles []string) []string {
	out := make([]string, 0, len(audioFiles))
	for _, path := range audioFiles {
		if strings.TrimSpace(path) == "" {
			continue
		}
		out = append(out, strings.TrimSuffix(path, filepath.Ext(path))+".mp4")
	}
	return out
}

// Regenerate resets kind and every stage downstream of it. Their job ids,
// results, and pollers are dropped; nothing is restarted and no request is
// made. Calling it again on an already idle stage changes nothing.
func (m *Manager) Regenerate(ctx context.Context, kind jobs.Kind) error {
	if !kind.Valid() {
		return services.Wrap(services.ErrValidation, string(kind), "regenerate", "unknown stage kind", nil)
	}
	var fx effects
	m.mu.Lock()
	changed := m.invalidateLocked(kind, &fx)
	if changed {
		m.persistLocked(ctx)
	}
	m.mu.Unlock()
	fx.run()
	if changed {
		m.logger.Info("stage reset", logging.String(logging.FieldStage, string(kind)))
	}
	return nil
}

// invalidateLocked applies the cascade for kind and reports whether
// anything changed.
func (m *Manager) invalidateLocked(kind jobs.Kind, fx *effects) bool {
	changed := false
	for _, k := range stage.Invalidates(kind) {
		kindChanged := !m.stageLocked(k).IsIdle()
		if task := m.tasks[k]; task != nil {
			task.Cancel()
			delete(m.tasks, k)
			kindChanged = true
		}
		if _, ok := m.registry.Get(k); ok {
			m.registry.Clear(k)
			kindChanged = true
		}
		if m.starting[k] {
			m.epochs[k]++
			kindChanged = true
		}
		if !kindChanged {
			continue
		}
		next, _ := stage.Apply(m.stageLocked(k), stage.Reset{})
		m.stages[k] = next
		m.emit(fx, Update{Kind: string(k), State: next})
		changed = true
	}
	return changed
}

func (m *Manager) checkStartLocked(kind jobs.Kind, skipBusy bool) error {
	if !kind.Valid() {
		return services.Wrap(services.ErrValidation, string(kind), "start", "unknown stage kind", nil)
	}
	if m.sess.FileID == "" {
		return services.Wrap(services.ErrPrerequisite, string(kind), "start", "upload a presentation first", nil)
	}
	if want := stage.StepFor(kind); m.nav.Current() != want {
		return services.Wrap(services.ErrPrerequisite, string(kind), "start", fmt.Sprintf("open step %d to start %s", want, kind), nil)
	}
	if m.starting[kind] {
		return services.Wrap(services.ErrPrerequisite, string(kind), "start", "start already in progress", nil)
	}
	switch m.stageLocked(kind).Status {
	case stage.StatusProcessing:
		return services.Wrap(services.ErrPrerequisite, string(kind), "start", "already processing", nil)
	case stage.StatusCompleted, stage.StatusFailed:
		return services.Wrap(services.ErrPrerequisite, string(kind), "start", "regenerate before starting again", nil)
	}
	inputs := m.inputsLocked()
	if skipBusy {
		inputs.Busy = false
	}
	return stage.CheckPrerequisites(kind, inputs)
}

func (m *Manager) buildStartLocked(kind jobs.Kind, opts StartOptions) startCall {
	script := m.sess.ScriptData
	switch kind {
	case jobs.Audio:
		req := backend.BatchAudioRequest{
			SlideScripts: script.SlideScripts,
			Voice:        m.cfg.TTS.Voice,
			Rate:         m.cfg.TTS.Rate,
			Pitch:        m.cfg.TTS.Pitch,
		}
		return func(ctx context.Context) (backend.JobAccepted, error) {
			return m.api.StartBatchAudio(ctx, req)
		}
	case jobs.Assemble:
		req := m.assembleRequestLocked(m.stageLocked(jobs.Audio).AudioFiles(), nil)
		return func(ctx context.Context) (backend.JobAccepted, error) {
			return m.api.StartAssemble(ctx, req)
		}
	default:
		avatar := m.sess.AvatarConfig
		req := backend.AvatarBatchRequest{
			PhotoID:       avatar.PhotoID,
			AudioPaths:    m.stageLocked(jobs.Audio).AudioFiles(),
			Emotion:       avatar.Emotion,
			CropScale:     avatar.CropScale,
			SamplingSteps: avatar.SamplingSteps,
			MaxSize:       avatar.MaxSize,
		}
		if req.MaxSize <= 0 {
			req.MaxSize = m.cfg.Avatar.MaxSize
		}
		if opts.Preview {
			req.PreviewDuration = previewDurationSeconds
		}
		return func(ctx context.Context) (backend.JobAccepted, error) {
			return m.api.StartAvatarBatch(ctx, req)
		}
	}
}

func (m *Manager) assembleRequestLocked(audioFiles, videoPaths []string) backend.AssembleRequest {
	req := backend.AssembleRequest{
		FileID:     m.sess.FileID,
		AudioPaths: audioFiles,
		VideoPaths: videoPaths,
		Voice:      m.cfg.TTS.Voice,
	}
	if m.sess.ScriptData != nil {
		req.SlideScripts = m.sess.ScriptData.SlideScripts
	}
	if m.sess.AvatarConfig != nil {
		req.PhotoID = m.sess.AvatarConfig.PhotoID
	}
	return req
}

// launchLocked issues the start request with the lock released and, on
// success, registers the job and attaches its poller. It must be called with
// m.mu held and returns with it released.
func (m *Manager) launchLocked(ctx context.Context, kind jobs.Kind, trigger stage.Trigger, call startCall) error {
	m.starting[kind] = true
	epoch := m.epochs[kind]
	generation := m.generation
	m.mu.Unlock()

	logger := logging.WithContext(ctx, m.logger)
	logger.Info("starting stage", logging.String("trigger", string(trigger)))
	accepted, err := call(ctx)

	var fx effects
	m.mu.Lock()
	delete(m.starting, kind)
	if err != nil {
		m.mu.Unlock()
		wrapped := services.Wrap(services.ErrStartFailed, string(kind), "start", startFailureText(err), err)
		logger.Warn("stage start failed", logging.Error(err))
		m.banner.ReportError(string(kind), wrapped)
		return wrapped
	}
	if m.epochs[kind] != epoch || m.generation != generation || m.closed {
		m.mu.Unlock()
		logger.Warn("discarding job started for a reset stage", logging.String(logging.FieldJobID, accepted.JobID))
		return services.Wrap(services.ErrStartFailed, string(kind), "start", "stage was reset while starting", nil)
	}

	if trigger == stage.TriggerUpdatePPT {
		m.invalidateLocked(kind, &fx)
	}
	next, err := stage.Apply(m.stageLocked(kind), stage.Started{JobID: accepted.JobID, Trigger: trigger})
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("record %s start: %w", kind, err)
	}
	m.registry.Set(kind, accepted.JobID)
	m.stages[kind] = next
	m.attachLocked(kind, accepted.JobID)
	m.persistLocked(ctx)
	m.emit(&fx, Update{Kind: string(kind), State: next})
	m.mu.Unlock()
	fx.run()

	logger.Info("stage started", logging.String(logging.FieldJobID, accepted.JobID))
	return nil
}

// attachLocked starts polling jobID for kind, replacing any previous poller.
func (m *Manager) attachLocked(kind jobs.Kind, jobID string) {
	if task := m.tasks[kind]; task != nil {
		task.Cancel()
	}
	fetch := func(ctx context.Context) (backend.JobStatus, error) {
		if kind == jobs.Avatar {
			return m.api.AvatarJobStatus(ctx, jobID)
		}
		return m.api.JobStatus(ctx, jobID)
	}
	ctx := services.WithJobID(services.WithStage(m.ctx, string(kind)), jobID)
	task := poller.Start(ctx, fetch, &stageSink{m: m, kind: kind, jobID: jobID}, poller.Options{
		Interval: m.pollInterval,
		Logger:   m.logger,
	})
	m.tasks[kind] = task
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		<-task.Done()
	}()
}

// refuse reports a start refused before any request was made.
func (m *Manager) refuse(kind jobs.Kind, err error) error {
	m.logger.Info("stage start refused",
		logging.String(logging.FieldStage, string(kind)),
		logging.String("reason", err.Error()),
	)
	m.banner.ReportError(string(kind), err)
	return err
}

func startContext(ctx context.Context, kind jobs.Kind) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithStage(ctx, string(kind))
	return services.WithRequestID(ctx, uuid.NewString())
}

func startFailureText(err error) string {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	return ""
}

// stageSink applies poll results for one job. Every call re-checks under
// the manager lock that jobID is still registered for kind.
type stageSink struct {
	m     *Manager
	kind  jobs.Kind
	jobID string
}

func (s *stageSink) Apply(status backend.JobStatus) bool {
	m := s.m
	var fx effects
	m.mu.Lock()
	if !m.registry.Matches(s.kind, s.jobID) || m.closed {
		m.mu.Unlock()
		return false
	}
	var ev stage.Event = stage.Progressed{Progress: status.Progress, Message: status.Message}
	completed := status.Status == backend.StatusCompleted
	if completed {
		result := status.Result
		if result == nil && status.VideoURL != "" {
			result = &backend.JobResult{URLPath: status.VideoURL}
		}
		ev = stage.Completed{Result: result, Message: status.Message}
	}
	next, err := stage.Apply(m.stageLocked(s.kind), ev)
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("dropping poll result", logging.String(logging.FieldStage, string(s.kind)), logging.Error(err))
		return false
	}
	m.stages[s.kind] = next
	m.persistLocked(m.ctx)
	m.emit(&fx, Update{Kind: string(s.kind), State: next})
	fileName := m.fileNameLocked()
	m.mu.Unlock()
	fx.run()

	if completed {
		m.logger.Info("stage completed",
			logging.String(logging.FieldStage, string(s.kind)),
			logging.String(logging.FieldJobID, s.jobID),
		)
		if err := m.notifier.NotifyStageCompleted(m.ctx, string(s.kind), fileName, completionDetail(next)); err != nil {
			m.logger.Debug("completion notification failed", logging.Error(err))
		}
	}
	return true
}

func (s *stageSink) Fail(message string, cause error) bool {
	m := s.m
	var fx effects
	m.mu.Lock()
	if !m.registry.Matches(s.kind, s.jobID) || m.closed {
		m.mu.Unlock()
		return false
	}
	next, err := stage.Apply(m.stageLocked(s.kind), stage.Failed{Error: message})
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("dropping poll failure", logging.String(logging.FieldStage, string(s.kind)), logging.Error(err))
		return false
	}
	m.stages[s.kind] = next
	m.persistLocked(m.ctx)
	m.emit(&fx, Update{Kind: string(s.kind), State: next})
	fileName := m.fileNameLocked()
	m.mu.Unlock()
	fx.run()

	m.logger.Warn("stage failed",
		logging.String(logging.FieldStage, string(s.kind)),
		logging.String(logging.FieldJobID, s.jobID),
		logging.Error(cause),
	)
	m.banner.Report(notifications.NoticeFromError(string(s.kind), next.Error, cause))
	if err := m.notifier.NotifyStageFailed(m.ctx, string(s.kind), fileName, next.Error); err != nil {
		m.logger.Debug("failure notification failed", logging.Error(err))
	}
	return true
}

func (m *Manager) fileNameLocked() string {
	if m.sess.FileMeta != nil {
		return m.sess.FileMeta.Name
	}
	return m.sess.FileID
}

func completionDetail(state stage.State) string {
	if state.Result == nil {
		return ""
	}
	if state.Result.URLPath != "" {
		return state.Result.URLPath
	}
	if n := len(state.Result.AudioFiles); n > 0 {
		return fmt.Sprintf("%d audio files", n)
	}
	if n := len(state.Result.Videos()); n > 0 {
		return fmt.Sprintf("%d videos", n)
	}
	return ""
}
