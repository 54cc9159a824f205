package workflow

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"slidecast/internal/backend"
	"slidecast/internal/config"
	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/session"
	"slidecast/internal/stage"
	"slidecast/internal/testsupport"
)

type harness struct {
	t       *testing.T
	cfg     *config.Config
	fb      *testsupport.FakeBackend
	store   *session.SQLiteStore
	m       *Manager
	mu      sync.Mutex
	updates []Update
	busyCh  chan bool
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	fb := testsupport.NewFakeBackend(t)
	opts = append([]testsupport.ConfigOption{testsupport.WithBackendURL(fb.URL())}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	client := backend.NewClient(cfg.Backend.BaseURL, backend.WithTimeouts(cfg.StartTimeout(), cfg.StatusTimeout()))
	store := testsupport.MustOpenStore(t, cfg)

	h := &harness{t: t, cfg: cfg, fb: fb, store: store, busyCh: make(chan bool, 16)}
	h.m = NewManager(cfg, client, store, logging.NewNop(), WithObserver(h.observe))
	t.Cleanup(h.m.Close)
	return h
}

func (h *harness) observe(u Update) {
	h.mu.Lock()
	h.updates = append(h.updates, u)
	h.mu.Unlock()
	if u.Kind == UpdateBusy {
		select {
		case h.busyCh <- u.Busy:
		default:
		}
	}
}

func (h *harness) progressSeen(kind jobs.Kind, progress int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range h.updates {
		if u.Kind == string(kind) && u.State.Status == stage.StatusProcessing && u.State.Progress == progress {
			return true
		}
	}
	return false
}

// resume saves sess and resumes it into the manager.
func (h *harness) resume(sess session.Session) {
	h.t.Helper()
	if err := h.store.Save(context.Background(), sess); err != nil {
		h.t.Fatalf("seed session: %v", err)
	}
	if _, err := h.m.Resume(context.Background()); err != nil {
		h.t.Fatalf("Resume: %v", err)
	}
}

func (h *harness) wait(kind jobs.Kind) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, ok := h.m.Wait(ctx, kind); !ok {
		h.t.Fatalf("no poller attached for %s", kind)
	}
}

func (h *harness) startRequests() int {
	return h.fb.Count("POST", "/tts/generate-batch") +
		h.fb.Count("POST", "/ppt/assemble-final") +
		h.fb.Count("POST", "/avatar/generate-batch")
}

func testScript() *backend.ScriptData {
	return &backend.ScriptData{
		FileID:  "f1",
		Opening: "Welcome",
		SlideScripts: []backend.SlideScript{
			{SlideNo: "1", Title: "Intro", Script: "hello"},
			{SlideNo: "2", Title: "Plan", Script: "next"},
		},
	}
}

func completedAudio(files ...string) stage.State {
	return stage.State{
		Status:   stage.StatusCompleted,
		Progress: 100,
		Result:   &backend.JobResult{AudioFiles: files},
		Trigger:  stage.TriggerStage,
	}
}

func sessionAt(step int) session.Session {
	return session.Session{
		FileID:      "f1",
		CurrentStep: step,
		Slides:      []backend.Slide{{SlideNo: 1, Title: "Intro"}, {SlideNo: 2, Title: "Plan"}},
		ScriptData:  testScript(),
		FileMeta:    &session.FileMeta{Name: "deck.pptx", Size: 1024},
	}
}

func withAudio(sess session.Session, jobID string, files ...string) session.Session {
	sess.Jobs.Audio = &jobID
	if sess.Stages == nil {
		sess.Stages = map[jobs.Kind]stage.State{}
	}
	sess.Stages[jobs.Audio] = completedAudio(files...)
	return sess
}

func withCompleted(sess session.Session, kind jobs.Kind, jobID string, result *backend.JobResult) session.Session {
	id := jobID
	switch kind {
	case jobs.Avatar:
		sess.Jobs.Avatar = &id
	case jobs.Assemble:
		sess.Jobs.Assemble = &id
	}
	if sess.Stages == nil {
		sess.Stages = map[jobs.Kind]stage.State{}
	}
	sess.Stages[kind] = stage.State{Status: stage.StatusCompleted, Progress: 100, Result: result, Trigger: stage.TriggerStage}
	return sess
}

func withAvatar(sess session.Session) session.Session {
	sess.AvatarConfig = &session.AvatarConfig{PhotoID: "p1", Emotion: 4, CropScale: 2.5, SamplingSteps: 20, MaxSize: 480}
	return sess
}

func anyStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

func equalStrings(a, b []string) bool { return slices.Equal(a, b) }
