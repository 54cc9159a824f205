package stage

import (
	"slidecast/internal/jobs"
	"slidecast/internal/services"
)

// Wizard steps on which each stage runs.
const (
	StepUpload   = 1
	StepSlides   = 2
	StepScript   = 3
	StepAudio    = 4
	StepAssemble = 5
	StepAvatar   = 6
)

// StepFor returns the wizard step that hosts kind.
func StepFor(kind jobs.Kind) int {
	switch kind {
	case jobs.Audio:
		return StepAudio
	case jobs.Assemble:
		return StepAssemble
	case jobs.Avatar:
		return StepAvatar
	default:
		return 0
	}
}

// Invalidates returns kind followed by every stage that consumes its output.
func Invalidates(kind jobs.Kind) []jobs.Kind {
	switch kind {
	case jobs.Audio:
		return []jobs.Kind{jobs.Audio, jobs.Avatar, jobs.Assemble}
	case jobs.Avatar:
		return []jobs.Kind{jobs.Avatar, jobs.Assemble}
	case jobs.Assemble:
		return []jobs.Kind{jobs.Assemble}
	default:
		return nil
	}
}

// Inputs is the slice of session state that prerequisites depend on.
type Inputs struct {
	HasScript       bool
	HasAvatarConfig bool
	Busy            bool
	BusyMessage     string
	Audio           State
}

// CheckPrerequisites reports why kind cannot start, or nil. The returned
// error carries services.ErrPrerequisite or services.ErrBusy.
func CheckPrerequisites(kind jobs.Kind, in Inputs) error {
	switch kind {
	case jobs.Audio:
		if !in.HasScript {
			return blocked(kind, "generate a script before creating audio")
		}
	case jobs.Assemble:
		if err := audioReady(kind, in); err != nil {
			return err
		}
	case jobs.Avatar:
		if err := audioReady(kind, in); err != nil {
			return err
		}
		if !in.HasAvatarConfig {
			return blocked(kind, "configure an avatar photo before rendering video")
		}
		if in.Busy {
			msg := in.BusyMessage
			if msg == "" {
				msg = "another avatar render is in progress"
			}
			return services.Wrap(services.ErrBusy, string(kind), "start", msg, nil)
		}
	default:
		return services.Wrap(services.ErrValidation, string(kind), "start", "unknown stage kind", nil)
	}
	return nil
}

func audioReady(kind jobs.Kind, in Inputs) error {
	if in.Audio.Status != StatusCompleted {
		return blocked(kind, "audio must be completed first")
	}
	if len(in.Audio.AudioFiles()) == 0 {
		return blocked(kind, "audio result has no files")
	}
	return nil
}

func blocked(kind jobs.Kind, msg string) error {
	return services.Wrap(services.ErrPrerequisite, string(kind), "start", msg, nil)
}
