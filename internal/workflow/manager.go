package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/poller"
	"slidecast/internal/session"
	"slidecast/internal/stage"
	"slidecast/internal/steps"
)

// Manager coordinates the wizard session and its pipeline stages.
type Manager struct {
	cfg      *config.Config
	api      API
	store    session.Store
	logger   *slog.Logger
	notifier notifications.Service
	banner   *notifications.Banner
	observer Observer
	now      func() time.Time

	pollInterval time.Duration
	busyInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	nav        *steps.Navigator
	sess       session.Session
	registry   jobs.Registry
	stages     map[jobs.Kind]stage.State
	starting   map[jobs.Kind]bool
	epochs     map[jobs.Kind]int
	generation int
	tasks      map[jobs.Kind]*poller.Task
	busy       BusyView
	busyCancel context.CancelFunc
	closed     bool
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the ntfy-backed notifier (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithBanner shares a banner with the caller.
func WithBanner(banner *notifications.Banner) ManagerOption {
	return func(m *Manager) {
		if banner != nil {
			m.banner = banner
		}
	}
}

// WithObserver registers a callback for progress updates.
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		m.observer = observer
	}
}

// NewManager constructs a workflow manager positioned on the upload step. A
// nil store keeps the session in memory only.
func NewManager(cfg *config.Config, api API, store session.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:          cfg,
		api:          api,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifications.NewService(cfg),
		banner:       notifications.NewBanner(nil),
		now:          time.Now,
		pollInterval: cfg.PollInterval(),
		busyInterval: cfg.BusyPollInterval(),
		ctx:          ctx,
		cancel:       cancel,
		nav:          steps.New(steps.First),
		stages:       make(map[jobs.Kind]stage.State),
		starting:     make(map[jobs.Kind]bool),
		epochs:       make(map[jobs.Kind]int),
		tasks:        make(map[jobs.Kind]*poller.Task),
	}
	if m.store == nil {
		m.store = session.NewMemoryStore()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Banner returns the error surface shared with the caller.
func (m *Manager) Banner() *notifications.Banner { return m.banner }

// Close stops every poller and the busy monitor and waits for them to exit.
// In-flight jobs keep running on the backend; a later Resume reattaches.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for kind, task := range m.tasks {
		task.Cancel()
		delete(m.tasks, kind)
	}
	m.stopBusyLocked()
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

// Step returns the current wizard step.
func (m *Manager) Step() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nav.Current()
}

// Session returns the current session snapshot.
func (m *Manager) Session() session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked()
}

// View returns a render-ready snapshot of the wizard.
func (m *Manager) View() View {
	m.mu.Lock()
	view := View{
		Step:         m.nav.Current(),
		FileID:       m.sess.FileID,
		FileMeta:     m.sess.FileMeta,
		SlideCount:   len(m.sess.Slides),
		HasScript:    m.sess.ScriptData != nil,
		AvatarConfig: m.sess.AvatarConfig,
		Busy:         m.busy,
	}
	inputs := m.inputsLocked()
	for _, kind := range jobs.Kinds {
		id, _ := m.registry.Get(kind)
		view.Stages = append(view.Stages, StageView{
			Kind:     kind,
			State:    m.stageLocked(kind).Clone(),
			JobID:    id,
			Starting: m.starting[kind],
			Ready:    stage.Readiness(kind, inputs),
		})
	}
	m.mu.Unlock()

	if notice, ok := m.banner.Current(); ok {
		view.Notice = &notice
	}
	return view
}

// Wait blocks until the poller for kind stops, returning its outcome. It
// returns false when no poller is attached.
func (m *Manager) Wait(ctx context.Context, kind jobs.Kind) (poller.Outcome, bool) {
	m.mu.Lock()
	task := m.tasks[kind]
	m.mu.Unlock()
	if task == nil {
		return "", false
	}
	select {
	case <-task.Done():
		return task.Wait(), true
	case <-ctx.Done():
		return poller.OutcomeCancelled, true
	}
}

func (m *Manager) stageLocked(kind jobs.Kind) stage.State {
	if state, ok := m.stages[kind]; ok {
		return state
	}
	return stage.Idle()
}

func (m *Manager) inputsLocked() stage.Inputs {
	return stage.Inputs{
		HasScript:       m.sess.ScriptData != nil,
		HasAvatarConfig: m.sess.AvatarConfig != nil,
		Busy:            m.busy.Generating,
		BusyMessage:     m.busy.Message,
		Audio:           m.stageLocked(jobs.Audio),
	}
}

func (m *Manager) factsLocked() steps.Facts {
	return steps.Facts{
		HasFile:   m.sess.FileID != "",
		HasSlides: len(m.sess.Slides) > 0,
		HasScript: m.sess.ScriptData != nil,
	}
}

func (m *Manager) sessionLocked() session.Session {
	snap := m.sess
	snap.CurrentStep = m.nav.Current()
	snap.Jobs = m.registry.Snapshot()
	snap.Stages = nil
	for _, kind := range jobs.Kinds {
		state, ok := m.stages[kind]
		if !ok || state.IsIdle() {
			continue
		}
		if snap.Stages == nil {
			snap.Stages = make(map[jobs.Kind]stage.State, len(jobs.Kinds))
		}
		snap.Stages[kind] = state.Clone()
	}
	return snap
}

// persistLocked saves the session once a file exists and the wizard is past
// the upload step.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.closed {
		return
	}
	snap := m.sessionLocked()
	if !snap.Persistable() {
		return
	}
	snap.Timestamp = m.now().UnixMilli()
	m.sess.Timestamp = snap.Timestamp
	if err := m.store.Save(ctx, snap); err != nil {
		m.logger.Warn("session save failed",
			logging.String(logging.FieldFileID, snap.FileID),
			logging.Error(err),
		)
	}
}

func (m *Manager) emit(fx *effects, update Update) {
	if m.observer == nil {
		return
	}
	observer := m.observer
	fx.add(func() { observer(update) })
}

// resetLocked drops every stage, poller, and session attribute.
func (m *Manager) resetLocked() {
	for kind, task := range m.tasks {
		task.Cancel()
		delete(m.tasks, kind)
	}
	for _, kind := range jobs.Kinds {
		m.epochs[kind]++
	}
	m.stopBusyLocked()
	m.generation++
	m.sess = session.Session{}
	m.registry = jobs.Registry{}
	m.stages = make(map[jobs.Kind]stage.State)
	m.starting = make(map[jobs.Kind]bool)
	m.nav = steps.New(steps.First)
}
