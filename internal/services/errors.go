package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrerequisite marks a start refused client-side before any network call.
	ErrPrerequisite = errors.New("prerequisite not met")
	// ErrStartFailed marks a job-creation request that failed; the stage stays idle.
	ErrStartFailed = errors.New("start failed")
	// ErrJobFailed marks a job the backend reported as failed.
	ErrJobFailed = errors.New("job failed")
	// ErrPollFailed marks a transport or decode failure while polling job status.
	ErrPollFailed = errors.New("poll failed")
	// ErrBusy marks the system-wide avatar renderer lock.
	ErrBusy = errors.New("system busy")
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport error")
	ErrTimeout    = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category maps an error to the banner category it is surfaced under.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrerequisite), errors.Is(err, ErrValidation):
		return "prerequisite"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrStartFailed):
		return "start_failed"
	case errors.Is(err, ErrPollFailed):
		return "poll_failed"
	case errors.Is(err, ErrJobFailed):
		return "job_failed"
	default:
		return "error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
