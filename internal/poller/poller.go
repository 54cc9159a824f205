package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"slidecast/internal/backend"
	"slidecast/internal/logging"
	"slidecast/internal/services"
)

// DefaultInterval is the delay between non-terminal polls.
const DefaultInterval = 2 * time.Second

// Outcome describes why a Task stopped.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeStale     Outcome = "stale"
	OutcomeCancelled Outcome = "cancelled"
)

// FetchFunc returns the current status of the polled job.
type FetchFunc func(ctx context.Context) (backend.JobStatus, error)

// Sink receives poll results. Each method performs the staleness check and
// the mutation atomically and returns false when the polled job id is no
// longer the registered one, in which case nothing was applied.
type Sink interface {
	Apply(status backend.JobStatus) bool
	Fail(message string, err error) bool
}

// Options tune a Task.
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Task is a running poll loop.
type Task struct {
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
}

// Start launches a poll loop in its own goroutine. The loop ends when ctx is
// cancelled or Cancel is called.
func Start(ctx context.Context, fetch FetchFunc, sink Sink, opts Options) *Task {
	if ctx == nil {
		ctx = context.Background()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := logging.WithContext(ctx, opts.Logger)

	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(task.done)
		defer cancel()
		outcome := run(ctx, fetch, sink, interval, logger)
		task.mu.Lock()
		task.outcome = outcome
		task.mu.Unlock()
		logger.Debug("poll loop stopped", logging.String("outcome", string(outcome)))
	}()
	return task
}

// Cancel stops the loop. Results of a fetch already in flight are discarded.
func (t *Task) Cancel() {
	if t != nil {
		t.cancel()
	}
}

// Done is closed when the loop has stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the loop stops and returns its outcome.
func (t *Task) Wait() Outcome {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

func run(ctx context.Context, fetch FetchFunc, sink Sink, interval time.Duration, logger *slog.Logger) Outcome {
	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	for {
		status, err := fetch(ctx)
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		if err != nil {
			logger.Warn("status poll failed", logging.Error(err))
			wrapped := services.Wrap(services.ErrPollFailed, "", "poll status", "", err)
			if !sink.Fail(failureText(err), wrapped) {
				return OutcomeStale
			}
			return OutcomeFailed
		}

		if status.Status == backend.StatusFailed {
			msg := status.FailureMessage()
			wrapped := services.Wrap(services.ErrJobFailed, "", "poll status", msg, nil)
			if !sink.Fail(msg, wrapped) {
				return OutcomeStale
			}
			return OutcomeFailed
		}
		if !sink.Apply(status) {
			return OutcomeStale
		}
		if status.Status == backend.StatusCompleted {
			return OutcomeCompleted
		}
		logger.Debug("job still running",
			logging.String("status", status.Status),
			logging.Int("progress", status.Progress),
		)

		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return OutcomeCancelled
		case <-timer.C:
		}
	}
}

func failureText(err error) string {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	return err.Error()
}
