package session

import (
	"encoding/json"
	"strings"
	"time"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/stage"
)

// AvatarConfig holds the talking-avatar render settings. A nil config means
// the avatar step does not apply.
type AvatarConfig struct {
	PhotoID       string  `json:"photo_id"`
	Emotion       int     `json:"emotion"`
	CropScale     float64 `json:"crop_scale"`
	SamplingSteps int     `json:"sampling_steps"`
	MaxSize       int     `json:"max_size"`
}

// FileMeta is display-only information about the uploaded deck.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Session is the persisted wizard snapshot.
type Session struct {
	FileID       string                    `json:"fileId"`
	CurrentStep  int                       `json:"currentStep"`
	Slides       []backend.Slide           `json:"slides"`
	ScriptData   *backend.ScriptData       `json:"scriptData"`
	AvatarConfig *AvatarConfig             `json:"avatarConfig"`
	Jobs         jobs.Snapshot             `json:"jobs"`
	FileMeta     *FileMeta                 `json:"fileMeta,omitempty"`
	Stages       map[jobs.Kind]stage.State `json:"stages,omitempty"`
	Timestamp    int64                     `json:"timestamp"`
}

// Persistable reports whether s should be written. Sessions before a file is
// uploaded, or still on the first step, are not saved.
func (s Session) Persistable() bool {
	return strings.TrimSpace(s.FileID) != "" && s.CurrentStep > 1
}

// SavedAt returns the save time recorded in the snapshot.
func (s Session) SavedAt() time.Time {
	if s.Timestamp <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.Timestamp)
}

// Stage returns the recorded state for kind, or idle.
func (s Session) Stage(kind jobs.Kind) stage.State {
	if state, ok := s.Stages[kind]; ok {
		return state.Normalize()
	}
	return stage.Idle()
}

// Encode renders the session document.
func Encode(s Session) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a session document. It returns false when the data is not a
// usable session: unparsable, missing a file id, or with an out-of-range
// step.
func Decode(data []byte) (Session, bool) {
	var s Session
	if len(data) == 0 {
		return Session{}, false
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false
	}
	if strings.TrimSpace(s.FileID) == "" {
		return Session{}, false
	}
	if s.CurrentStep < 1 || s.CurrentStep > 6 {
		return Session{}, false
	}
	return s, true
}
