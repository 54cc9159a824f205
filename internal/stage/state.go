package stage

import (
	"slices"
	"strings"

	"slidecast/internal/backend"
)

// Status is the client-side lifecycle position of a stage.
type Status string

const (
	StatusIdle       Status = backend.StatusIdle
	StatusProcessing Status = backend.StatusProcessing
	StatusCompleted  Status = backend.StatusCompleted
	StatusFailed     Status = backend.StatusFailed
)

// Trigger records which action started a stage run.
type Trigger string

const (
	// TriggerStage is an ordinary start from the stage's own step.
	TriggerStage Trigger = "stage"
	// TriggerUpdatePPT is an assemble run started from the avatar step with
	// inferred video paths.
	TriggerUpdatePPT Trigger = "update_ppt"
)

// State is the progress of one stage kind.
type State struct {
	Status   Status             `json:"status"`
	Progress int                `json:"progress"`
	Message  string             `json:"message,omitempty"`
	Result   *backend.JobResult `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Trigger  Trigger            `json:"trigger,omitempty"`
}

// Idle returns the initial state.
func Idle() State {
	return State{Status: StatusIdle}
}

// Normalize maps an empty or unknown status to idle.
func (s State) Normalize() State {
	switch s.Status {
	case StatusIdle, StatusProcessing, StatusCompleted, StatusFailed:
		return s
	default:
		return Idle()
	}
}

// IsIdle reports whether the stage has not been started.
func (s State) IsIdle() bool { return s.Status == StatusIdle || s.Status == "" }

// AudioFiles returns the non-empty audio paths of a completed result.
func (s State) AudioFiles() []string {
	if s.Result == nil {
		return nil
	}
	out := make([]string, 0, len(s.Result.AudioFiles))
	for _, path := range s.Result.AudioFiles {
		if strings.TrimSpace(path) != "" {
			out = append(out, path)
		}
	}
	return out
}

// Clone returns a deep copy so callers cannot alias result slices.
func (s State) Clone() State {
	if s.Result != nil {
		result := *s.Result
		result.AudioFiles = slices.Clone(result.AudioFiles)
		result.VideoFiles = slices.Clone(result.VideoFiles)
		result.Results = slices.Clone(result.Results)
		s.Result = &result
	}
	return s
}
