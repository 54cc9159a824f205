package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"slidecast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStartFailed, "audio", "start", "batch request rejected", base)
	if !errors.Is(err, services.ErrStartFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"audio", "start", "batch request rejected", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestCategoryMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrPrerequisite, "assemble", "start", "audio missing", nil), "prerequisite"},
		{services.Wrap(services.ErrBusy, "avatar", "start", "renderer busy", nil), "busy"},
		{services.Wrap(services.ErrStartFailed, "audio", "start", "", errors.New("503")), "start_failed"},
		{services.Wrap(services.ErrJobFailed, "audio", "poll", "tts crashed", nil), "job_failed"},
		{services.Wrap(services.ErrPollFailed, "audio", "poll", "", errors.New("eof")), "poll_failed"},
		{errors.New("other"), "error"},
	}
	for _, tc := range tests {
		if got := services.Category(tc.err); got != tc.want {
			t.Fatalf("Category(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := services.WithStage(context.Background(), "avatar")
	ctx = services.WithJobID(ctx, "j-1")
	ctx = services.WithRequestID(ctx, "")

	if stage, ok := services.StageFromContext(ctx); !ok || stage != "avatar" {
		t.Fatalf("unexpected stage %q (%v)", stage, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != "j-1" {
		t.Fatalf("unexpected job id %q (%v)", id, ok)
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("empty request id should not be stored")
	}
}
