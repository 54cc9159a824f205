package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"slidecast/internal/backend"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/testsupport"
	"slidecast/internal/workflow"
)

func newTestWizardModel(t *testing.T) (*wizardModel, *bytes.Buffer) {
	t.Helper()
	fb := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(fb.URL()))

	var out bytes.Buffer
	w := newWizard(&out, false)
	mgr := workflow.NewManager(cfg, backend.NewClient(fb.URL()), nil, logging.NewNop(),
		workflow.WithBanner(notifications.NewBanner(w.onNotice)),
		workflow.WithObserver(w.observe),
	)
	t.Cleanup(mgr.Close)
	w.attach(mgr)

	m := newWizardModel(context.Background(), w, []string{"backend unreachable"})
	t.Cleanup(m.cancel)
	return m, &out
}

func typeLine(m *wizardModel, line string) tea.Cmd {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestWizardModelShowsCurrentStep(t *testing.T) {
	m, _ := newTestWizardModel(t)

	view := m.View()
	if !strings.Contains(view, "Step 1/6") {
		t.Fatalf("expected step header in view, got %q", view)
	}
	if !strings.Contains(view, wizardPrompt) {
		t.Fatalf("expected prompt in view, got %q", view)
	}
	if m.Init() == nil {
		t.Fatal("expected Init to print startup lines")
	}
}

func TestWizardModelRunsEnteredCommand(t *testing.T) {
	m, out := newTestWizardModel(t)

	if cmd := typeLine(m, "next"); cmd == nil {
		t.Fatal("expected a command for the entered line")
	}
	if m.running != "next" {
		t.Fatalf("expected running command, got %q", m.running)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "next") {
		t.Fatal("expected the running command in the view")
	}

	// Input is ignored until the command finishes.
	if cmd := typeLine(m, "status"); cmd != nil {
		t.Fatal("expected Enter to be ignored while a command runs")
	}
	if len(m.history) != 1 {
		t.Fatalf("expected one history entry, got %v", m.history)
	}

	done := m.runCommand("next")()
	m.Update(done)
	if m.running != "" {
		t.Fatalf("expected command finished, got %q", m.running)
	}
	if m.view.Step != 2 {
		t.Fatalf("expected step 2 after next, got %d", m.view.Step)
	}
	if !strings.Contains(out.String(), "-> step 2: Slides") {
		t.Fatalf("expected step transition output, got %q", out.String())
	}
	if !strings.Contains(m.View(), "Step 2/6: Slides") {
		t.Fatalf("expected refreshed view, got %q", m.View())
	}
}

func TestWizardModelPrintsCommandErrors(t *testing.T) {
	m, out := newTestWizardModel(t)

	m.Update(m.runCommand("bogus")())
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("expected usage error output, got %q", out.String())
	}
	if m.quitting {
		t.Fatal("a failed command must not quit")
	}
}

func TestWizardModelQuitCommand(t *testing.T) {
	m, _ := newTestWizardModel(t)

	_, cmd := m.Update(m.runCommand("quit")())
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if m.ctx.Err() == nil {
		t.Fatal("expected command context cancelled on quit")
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestWizardModelCtrlCCancelsRunningCommand(t *testing.T) {
	m, _ := newTestWizardModel(t)
	typeLine(m, "audio wait")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if m.ctx.Err() == nil {
		t.Fatal("expected command context cancelled")
	}
}

func TestWizardModelRecallsHistory(t *testing.T) {
	m, _ := newTestWizardModel(t)
	for _, line := range []string{"status", "help"} {
		typeLine(m, line)
		m.Update(m.runCommand(line)())
	}

	steps := []struct {
		key  tea.KeyType
		want string
	}{
		{tea.KeyUp, "help"},
		{tea.KeyUp, "status"},
		{tea.KeyUp, "status"},
		{tea.KeyDown, "help"},
		{tea.KeyDown, ""},
	}
	for i, step := range steps {
		m.Update(tea.KeyMsg{Type: step.key})
		if got := m.input.Value(); got != step.want {
			t.Fatalf("step %d: expected %q, got %q", i, step.want, got)
		}
	}
}

func TestWizardModelRefreshesFromObserver(t *testing.T) {
	m, _ := newTestWizardModel(t)

	if _, err := m.w.m.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if m.view.Step != 1 {
		t.Fatalf("view must only change on refresh, got step %d", m.view.Step)
	}
	m.Update(wizardRefreshMsg{})
	if m.view.Step != 2 {
		t.Fatalf("expected step 2 after refresh, got %d", m.view.Step)
	}

	if _, cmd := m.Update(wizardLineMsg{line: "audio completed"}); cmd == nil {
		t.Fatal("expected background lines to be printed")
	}
}
