// Package steps implements the linear six-step wizard navigator.
package steps

import (
	"fmt"

	"slidecast/internal/services"
)

const (
	First = 1
	Last  = 6
)

var names = map[int]string{
	1: "upload",
	2: "slides",
	3: "script",
	4: "audio",
	5: "assemble",
	6: "avatar",
}

// Name returns the short label of a step.
func Name(step int) string {
	if name, ok := names[step]; ok {
		return name
	}
	return fmt.Sprintf("step-%d", step)
}

// Facts are the session attributes navigation guards depend on.
type Facts struct {
	HasFile   bool
	HasSlides bool
	HasScript bool
}

// Transition describes one navigation move.
type Transition struct {
	From int
	To   int
}

// Backward reports whether the move goes to an earlier step.
func (t Transition) Backward() bool { return t.To < t.From }

// Navigator holds the current step. It never moves on its own; only the
// explicit calls below change it.
type Navigator struct {
	current int
}

// New returns a navigator positioned at step, clamped to [First, Last].
func New(step int) *Navigator {
	return &Navigator{current: clamp(step)}
}

// Current returns the current step.
func (n *Navigator) Current() int { return n.current }

// Advance moves one step forward.
func (n *Navigator) Advance(f Facts) (Transition, error) {
	if n.current >= Last {
		return Transition{}, refuse("advance", "already at the last step")
	}
	to := n.current + 1
	if err := entryGuard(to, f); err != nil {
		return Transition{}, err
	}
	return n.move(to), nil
}

// Back moves one step backward.
func (n *Navigator) Back() (Transition, error) {
	if n.current <= First {
		return Transition{}, refuse("back", "already at the first step")
	}
	return n.move(n.current - 1), nil
}

// JumpTo moves directly to a step whose data already exists: 1 always, 2
// when slides exist, 3 when a script exists.
func (n *Navigator) JumpTo(step int, f Facts) (Transition, error) {
	switch step {
	case 1:
	case 2:
		if !f.HasSlides {
			return Transition{}, refuse("jump", "no parsed slides yet")
		}
	case 3:
		if !f.HasScript {
			return Transition{}, refuse("jump", "no generated script yet")
		}
	default:
		return Transition{}, refuse("jump", fmt.Sprintf("cannot jump to step %d", step))
	}
	return n.move(step), nil
}

// Set forces the current step. Used when an operation such as upload or
// script generation completes and when restoring a session.
func (n *Navigator) Set(step int) Transition {
	return n.move(clamp(step))
}

func (n *Navigator) move(to int) Transition {
	t := Transition{From: n.current, To: to}
	n.current = to
	return t
}

func entryGuard(to int, f Facts) error {
	if to > First && !f.HasFile {
		return refuse("advance", "upload a presentation first")
	}
	if to >= 3 && to <= 4 && !f.HasScript {
		return refuse("advance", "generate a script first")
	}
	return nil
}

func refuse(op, msg string) error {
	return services.Wrap(services.ErrPrerequisite, "navigation", op, msg, nil)
}

func clamp(step int) int {
	switch {
	case step < First:
		return First
	case step > Last:
		return Last
	default:
		return step
	}
}
