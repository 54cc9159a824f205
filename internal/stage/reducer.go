package stage

import (
	"errors"
	"fmt"
	"strings"

	"slidecast/internal/backend"
)

// ErrInvalidTransition is returned when an event does not apply to the current status.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Event is a lifecycle input to Apply.
type Event interface {
	eventName() string
}

// Started records that the backend accepted a job for the stage.
type Started struct {
	JobID   string
	Trigger Trigger
	Message string
}

// Progressed records a non-terminal poll result.
type Progressed struct {
	Progress int
	Message  string
}

// Completed records a terminal successful poll result.
type Completed struct {
	Result  *backend.JobResult
	Message string
}

// Failed records a backend-reported or transport failure.
type Failed struct {
	Error string
}

// Reset returns the stage to idle, discarding its result.
type Reset struct{}

func (Started) eventName() string    { return "started" }
func (Progressed) eventName() string { return "progressed" }
func (Completed) eventName() string  { return "completed" }
func (Failed) eventName() string     { return "failed" }
func (Reset) eventName() string      { return "reset" }

// Apply returns the state that follows ev. The input state is not modified.
func Apply(state State, ev Event) (State, error) {
	state = state.Normalize()
	switch e := ev.(type) {
	case Started:
		if state.Status != StatusIdle {
			return state, invalid(state, ev)
		}
		if strings.TrimSpace(e.JobID) == "" {
			return state, fmt.Errorf("%w: started without job id", ErrInvalidTransition)
		}
		trigger := e.Trigger
		if trigger == "" {
			trigger = TriggerStage
		}
		return State{Status: StatusProcessing, Message: e.Message, Trigger: trigger}, nil
	case Progressed:
		if state.Status != StatusProcessing {
			return state, invalid(state, ev)
		}
		next := state
		next.Progress = clampProgress(e.Progress)
		if e.Message != "" {
			next.Message = e.Message
		}
		return next, nil
	case Completed:
		if state.Status != StatusProcessing {
			return state, invalid(state, ev)
		}
		next := State{
			Status:   StatusCompleted,
			Progress: 100,
			Message:  e.Message,
			Result:   e.Result,
			Trigger:  state.Trigger,
		}
		return next.Clone(), nil
	case Failed:
		if state.Status != StatusProcessing {
			return state, invalid(state, ev)
		}
		msg := strings.TrimSpace(e.Error)
		if msg == "" {
			msg = "job failed"
		}
		return State{
			Status:   StatusFailed,
			Progress: state.Progress,
			Message:  state.Message,
			Error:    msg,
			Trigger:  state.Trigger,
		}, nil
	case Reset:
		return Idle(), nil
	case nil:
		return state, fmt.Errorf("%w: nil event", ErrInvalidTransition)
	default:
		return state, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

func invalid(state State, ev Event) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, ev.eventName(), state.Status)
}

func clampProgress(value int) int {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
