package notifications

import (
	"errors"
	"testing"

	"slidecast/internal/services"
)

func TestBannerLatestWinsAndDismiss(t *testing.T) {
	var changes []bool
	banner := NewBanner(func(_ Notice, active bool) { changes = append(changes, active) })

	if _, ok := banner.Current(); ok {
		t.Fatal("new banner should be empty")
	}
	banner.Report(Notice{Category: CategoryStartFailed, Stage: "audio", Message: "first"})
	banner.Report(Notice{Category: CategoryJobFailed, Stage: "assemble", Message: "second"})

	current, ok := banner.Current()
	if !ok || current.Message != "second" || current.At.IsZero() {
		t.Fatalf("unexpected current notice %+v", current)
	}
	if !banner.Dismiss() {
		t.Fatal("expected dismiss to report an active notice")
	}
	if banner.Dismiss() {
		t.Fatal("second dismiss should be a no-op")
	}
	if len(changes) != 3 || changes[2] {
		t.Fatalf("unexpected change callbacks %v", changes)
	}
}

func TestNoticeFromErrorCategories(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{err: services.Wrap(services.ErrPrerequisite, "audio", "start", "no script", nil), want: CategoryPrerequisite},
		{err: services.Wrap(services.ErrBusy, "avatar", "start", "busy", nil), want: CategoryBusy},
		{err: services.Wrap(services.ErrStartFailed, "audio", "start", "", errors.New("refused")), want: CategoryStartFailed},
		{err: services.Wrap(services.ErrPollFailed, "audio", "poll", "", nil), want: CategoryPollFailed},
		{err: services.Wrap(services.ErrJobFailed, "audio", "poll", "boom", nil), want: CategoryJobFailed},
		{err: errors.New("plain"), want: CategoryError},
	}
	for _, tt := range tests {
		notice := NoticeFromError("audio", "", tt.err)
		if notice.Category != tt.want {
			t.Fatalf("NoticeFromError(%v) = %s, want %s", tt.err, notice.Category, tt.want)
		}
		if notice.Message == "" {
			t.Fatal("notice message must not be empty")
		}
	}
	busy := NoticeFromError("avatar", "renderer busy", services.Wrap(services.ErrBusy, "", "", "", nil))
	if !busy.Warning() || busy.Message != "renderer busy" {
		t.Fatalf("unexpected busy notice %+v", busy)
	}
}
