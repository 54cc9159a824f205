package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"slidecast/internal/backend"
	"slidecast/internal/services"
)

type recordingSink struct {
	mu       sync.Mutex
	applied  []backend.JobStatus
	failures []string
	errs     []error
	stale    bool
}

func (s *recordingSink) Apply(status backend.JobStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return false
	}
	s.applied = append(s.applied, status)
	return true
}

func (s *recordingSink) Fail(message string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return false
	}
	s.failures = append(s.failures, message)
	s.errs = append(s.errs, err)
	return true
}

func (s *recordingSink) markStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func scripted(statuses ...backend.JobStatus) (FetchFunc, *int) {
	var mu sync.Mutex
	calls := 0
	return func(context.Context) (backend.JobStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		idx := calls
		calls++
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		return statuses[idx], nil
	}, &calls
}

func TestTaskCompletes(t *testing.T) {
	fetch, _ := scripted(
		backend.JobStatus{Status: backend.StatusProcessing, Progress: 40},
		backend.JobStatus{Status: backend.StatusCompleted, Progress: 100, Result: &backend.JobResult{AudioFiles: []string{"a1.mp3", "a2.mp3"}}},
	)
	sink := &recordingSink{}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Millisecond})

	if outcome := task.Wait(); outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if len(sink.applied) != 2 {
		t.Fatalf("expected 2 applied statuses, got %d", len(sink.applied))
	}
	if sink.applied[0].Progress != 40 || sink.applied[1].Result == nil {
		t.Fatalf("unexpected applied statuses %+v", sink.applied)
	}
}

func TestTaskBackendFailure(t *testing.T) {
	fetch, _ := scripted(backend.JobStatus{Status: backend.StatusFailed, Error: "tts crashed"})
	sink := &recordingSink{}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Millisecond})

	if outcome := task.Wait(); outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", outcome)
	}
	if len(sink.failures) != 1 || sink.failures[0] != "tts crashed" {
		t.Fatalf("unexpected failures %v", sink.failures)
	}
	if !errors.Is(sink.errs[0], services.ErrJobFailed) {
		t.Fatalf("expected job failed marker, got %v", sink.errs[0])
	}
	if len(sink.applied) != 0 {
		t.Fatal("failed status must not be applied as progress")
	}
}

func TestTaskTransportErrorIsFailureWithoutRetry(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (backend.JobStatus, error) {
		calls++
		return backend.JobStatus{}, errors.New("connection refused")
	}
	sink := &recordingSink{}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Millisecond})

	if outcome := task.Wait(); outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", outcome)
	}
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}
	if !errors.Is(sink.errs[0], services.ErrPollFailed) {
		t.Fatalf("expected poll failed marker, got %v", sink.errs[0])
	}
}

func TestTaskStopsWhenStale(t *testing.T) {
	fetch, calls := scripted(backend.JobStatus{Status: backend.StatusProcessing, Progress: 10})
	sink := &recordingSink{stale: true}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Millisecond})

	if outcome := task.Wait(); outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", outcome)
	}
	if *calls != 1 {
		t.Fatalf("expected loop to stop after first stale result, got %d fetches", *calls)
	}
	if len(sink.applied) != 0 || len(sink.failures) != 0 {
		t.Fatal("stale poll must not mutate")
	}
}

func TestTaskStaleMidFlight(t *testing.T) {
	sink := &recordingSink{}
	release := make(chan struct{})
	fetched := make(chan struct{}, 4)
	fetch := func(context.Context) (backend.JobStatus, error) {
		fetched <- struct{}{}
		<-release
		return backend.JobStatus{Status: backend.StatusProcessing, Progress: 50}, nil
	}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Millisecond})

	<-fetched
	sink.markStale()
	close(release)

	if outcome := task.Wait(); outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", outcome)
	}
	if len(sink.applied) != 0 {
		t.Fatalf("expected no mutation after clear, got %v", sink.applied)
	}
}

func TestTaskCancelDiscardsInFlightResult(t *testing.T) {
	sink := &recordingSink{}
	release := make(chan struct{})
	fetched := make(chan struct{}, 1)
	fetch := func(context.Context) (backend.JobStatus, error) {
		fetched <- struct{}{}
		<-release
		return backend.JobStatus{Status: backend.StatusCompleted}, nil
	}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Millisecond})

	<-fetched
	task.Cancel()
	close(release)

	if outcome := task.Wait(); outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", outcome)
	}
	if len(sink.applied) != 0 {
		t.Fatal("cancelled task applied a result")
	}
}

func TestTaskCancelDuringDelay(t *testing.T) {
	fetch, _ := scripted(backend.JobStatus{Status: backend.StatusProcessing})
	sink := &recordingSink{}
	task := Start(context.Background(), fetch, sink, Options{Interval: time.Hour})

	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		n := len(sink.applied)
		sink.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first poll never applied")
		case <-time.After(time.Millisecond):
		}
	}
	task.Cancel()
	if outcome := task.Wait(); outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", outcome)
	}
}
