package workflow

import (
	"context"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/notifications"
	"slidecast/internal/session"
	"slidecast/internal/stage"
)

// API is the backend surface the manager drives.
type API interface {
	Upload(ctx context.Context, path string) (backend.UploadResult, error)
	ParseStatus(ctx context.Context, fileID string) (backend.ParseStatus, error)
	GenerateScript(ctx context.Context, fileID string, cfg backend.ScriptConfig) (backend.ScriptData, error)
	TranslateScript(ctx context.Context, fileID string, req backend.TranslateRequest) (backend.ScriptData, error)
	UploadPhoto(ctx context.Context, path string) (backend.PhotoUpload, error)
	Voices(ctx context.Context, language string) ([]backend.Voice, error)
	GenerateSpeech(ctx context.Context, req backend.SpeechRequest) (backend.SpeechResult, error)
	StartBatchAudio(ctx context.Context, req backend.BatchAudioRequest) (backend.JobAccepted, error)
	StartAssemble(ctx context.Context, req backend.AssembleRequest) (backend.JobAccepted, error)
	StartAvatarBatch(ctx context.Context, req backend.AvatarBatchRequest) (backend.JobAccepted, error)
	JobStatus(ctx context.Context, jobID string) (backend.JobStatus, error)
	AvatarJobStatus(ctx context.Context, jobID string) (backend.JobStatus, error)
	SystemInfo(ctx context.Context) (backend.SystemInfo, error)
	ForceUnlock(ctx context.Context) error
	DeleteFile(ctx context.Context, fileID string) error
}

// StartOptions tune a stage start.
type StartOptions struct {
	// Preview renders a short avatar sample instead of the full batch.
	Preview bool
}

// previewDurationSeconds bounds avatar preview renders.
const previewDurationSeconds = 5.0

// Update kinds other than stage kinds.
const (
	UpdateUpload = "upload"
	UpdateStep   = "step"
	UpdateBusy   = "busy"
)

// Update is delivered to the Observer after every visible change.
type Update struct {
	Kind    string
	State   stage.State
	Step    int
	Busy    bool
	Message string
}

// Observer receives updates outside the manager lock.
type Observer func(Update)

// BusyView is the last known avatar renderer state.
type BusyView struct {
	Known      bool
	Generating bool
	Message    string
}

// StageView is one stage as rendered by status commands.
type StageView struct {
	Kind     jobs.Kind
	State    stage.State
	JobID    string
	Starting bool
	Ready    stage.Health
}

// View is a read-only snapshot of the wizard.
type View struct {
	Step         int
	FileID       string
	FileMeta     *session.FileMeta
	SlideCount   int
	HasScript    bool
	AvatarConfig *session.AvatarConfig
	Stages       []StageView
	Busy         BusyView
	Notice       *notifications.Notice
}

// Stage returns the view for kind.
func (v View) Stage(kind jobs.Kind) StageView {
	for _, sv := range v.Stages {
		if sv.Kind == kind {
			return sv
		}
	}
	return StageView{Kind: kind, State: stage.Idle()}
}

type effects []func()

func (e *effects) add(fn func()) {
	*e = append(*e, fn)
}

func (e effects) run() {
	for _, fn := range e {
		fn()
	}
}
