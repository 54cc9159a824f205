package notifications

import (
	"strings"
	"sync"
	"time"

	"slidecast/internal/services"
)

// Category classifies a notice for rendering.
type Category string

const (
	CategoryStartFailed  Category = "start_failed"
	CategoryJobFailed    Category = "job_failed"
	CategoryPollFailed   Category = "poll_failed"
	CategoryPrerequisite Category = "prerequisite"
	CategoryBusy         Category = "busy"
	CategoryError        Category = "error"
)

// Notice is one banner message.
type Notice struct {
	Category Category
	Stage    string
	Message  string
	At       time.Time
}

// Warning reports whether the notice is advisory rather than a failure.
func (n Notice) Warning() bool {
	return n.Category == CategoryBusy || n.Category == CategoryPrerequisite
}

// NoticeFromError classifies err by its marker. Message carries the
// operator-facing text; when empty the error text is used.
func NoticeFromError(stage, message string, err error) Notice {
	category := Category(services.Category(err))
	if category == "" {
		category = CategoryError
	}
	if strings.TrimSpace(message) == "" && err != nil {
		message = err.Error()
	}
	return Notice{Category: category, Stage: stage, Message: strings.TrimSpace(message)}
}

// Banner holds at most one active notice. It is safe for concurrent use.
type Banner struct {
	mu       sync.Mutex
	current  *Notice
	now      func() time.Time
	onChange func(Notice, bool)
}

// NewBanner returns an empty banner. onChange, when non-nil, is called with
// the new notice (or false on dismissal) after every change.
func NewBanner(onChange func(Notice, bool)) *Banner {
	return &Banner{now: time.Now, onChange: onChange}
}

// Report replaces the current notice.
func (b *Banner) Report(n Notice) {
	if n.At.IsZero() {
		n.At = b.now()
	}
	b.mu.Lock()
	b.current = &n
	cb := b.onChange
	b.mu.Unlock()
	if cb != nil {
		cb(n, true)
	}
}

// ReportError classifies err and reports it. Nil errors are ignored.
func (b *Banner) ReportError(stage string, err error) {
	if err == nil {
		return
	}
	b.Report(NoticeFromError(stage, "", err))
}

// Dismiss clears the current notice.
func (b *Banner) Dismiss() bool {
	b.mu.Lock()
	had := b.current != nil
	b.current = nil
	cb := b.onChange
	b.mu.Unlock()
	if had && cb != nil {
		cb(Notice{}, false)
	}
	return had
}

// Current returns the active notice.
func (b *Banner) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}
