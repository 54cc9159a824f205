package workflow

import (
	"context"

	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/session"
	"slidecast/internal/stage"
	"slidecast/internal/steps"
)

// Advance moves to the next step. Job completion never calls this; the
// operator always advances explicitly.
func (m *Manager) Advance(ctx context.Context) (steps.Transition, error) {
	return m.navigate(ctx, func(nav *steps.Navigator, f steps.Facts) (steps.Transition, error) {
		return nav.Advance(f)
	})
}

// Back moves to the previous step. Returning from assembly to audio resets
// the assemble stage; returning from the avatar step resets nothing.
func (m *Manager) Back(ctx context.Context) (steps.Transition, error) {
	return m.navigate(ctx, func(nav *steps.Navigator, _ steps.Facts) (steps.Transition, error) {
		return nav.Back()
	})
}

// JumpTo moves directly to a step whose data already exists.
func (m *Manager) JumpTo(ctx context.Context, step int) (steps.Transition, error) {
	return m.navigate(ctx, func(nav *steps.Navigator, f steps.Facts) (steps.Transition, error) {
		return nav.JumpTo(step, f)
	})
}

func (m *Manager) navigate(ctx context.Context, move func(*steps.Navigator, steps.Facts) (steps.Transition, error)) (steps.Transition, error) {
	var fx effects
	m.mu.Lock()
	tr, err := move(m.nav, m.factsLocked())
	if err != nil {
		m.mu.Unlock()
		m.banner.ReportError("navigation", err)
		return tr, err
	}
	m.applyTransitionLocked(tr, &fx)
	m.persistLocked(ctx)
	m.mu.Unlock()
	fx.run()

	m.logger.Debug("step changed",
		logging.String("from", steps.Name(tr.From)),
		logging.String("to", steps.Name(tr.To)),
	)
	return tr, nil
}

// applyTransitionLocked runs the side effects tied to a step change.
func (m *Manager) applyTransitionLocked(tr steps.Transition, fx *effects) {
	if tr.From == tr.To {
		return
	}
	if tr.From == stage.StepAssemble && tr.To == stage.StepAudio {
		m.invalidateLocked(jobs.Assemble, fx)
	}
	if tr.From == stage.StepScript && tr.To == stage.StepAudio {
		m.seedAvatarLocked()
	}
	if tr.To == stage.StepAvatar {
		m.startBusyLocked()
	} else if tr.From == stage.StepAvatar {
		m.stopBusyLocked()
	}
	m.emit(fx, Update{Kind: UpdateStep, Step: tr.To})
}

// seedAvatarLocked fills the avatar settings from configuration when a
// default photo is configured and the session has none.
func (m *Manager) seedAvatarLocked() {
	if m.sess.AvatarConfig != nil || m.cfg.Avatar.PhotoID == "" {
		return
	}
	defaults := m.cfg.Avatar
	m.sess.AvatarConfig = &session.AvatarConfig{
		PhotoID:       defaults.PhotoID,
		Emotion:       defaults.Emotion,
		CropScale:     defaults.CropScale,
		SamplingSteps: defaults.SamplingSteps,
		MaxSize:       defaults.MaxSize,
	}
}
