package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"slidecast/internal/workflow"
)

// Messages delivered to the wizard model.
type (
	// wizardLineMsg carries one line of command or background output.
	wizardLineMsg struct{ line string }
	// wizardRefreshMsg asks the model to re-read the manager view.
	wizardRefreshMsg struct{}
	// wizardDoneMsg reports that a command finished.
	wizardDoneMsg struct {
		input string
		err   error
	}
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

// wizardModel is the terminal front end. The status view stays pinned
// under the scrollback; command output and background updates are printed
// above it. Commands run one at a time off the UI goroutine.
type wizardModel struct {
	w       *wizard
	ctx     context.Context
	cancel  context.CancelFunc
	input   textinput.Model
	spinner spinner.Model
	view    workflow.View
	startup []string

	running  string
	history  []string
	recall   int
	quitting bool
}

func newWizardModel(ctx context.Context, w *wizard, startup []string) *wizardModel {
	ctx, cancel := context.WithCancel(ctx)

	input := textinput.New()
	input.Prompt = wizardPrompt
	input.Placeholder = "type 'help' for commands"
	input.CharLimit = 1024
	if w.colorize {
		input.PromptStyle = promptStyle
	}
	input.Focus()

	return &wizardModel{
		w:       w,
		ctx:     ctx,
		cancel:  cancel,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(runningStyle)),
		view:    w.m.View(),
		startup: startup,
	}
}

func (m *wizardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if len(m.startup) > 0 {
		cmds = append(cmds, tea.Println(strings.Join(m.startup, "\n")))
	}
	return tea.Batch(cmds...)
}

func (m *wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case wizardLineMsg:
		return m, tea.Println(msg.line)

	case wizardRefreshMsg:
		m.view = m.w.m.View()
		return m, nil

	case wizardDoneMsg:
		m.running = ""
		m.view = m.w.m.View()
		if errors.Is(msg.err, errQuit) {
			return m.quit()
		}
		return m, nil

	case spinner.TickMsg:
		if m.running == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		return m.quit()

	case tea.KeyEnter:
		if m.running != "" {
			return m, nil
		}
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		m.history = append(m.history, line)
		m.recall = len(m.history)
		m.running = line
		echo := tea.Println(hintStyle.Render(wizardPrompt + line))
		return m, tea.Batch(tea.Sequence(echo, m.runCommand(line)), m.spinner.Tick)

	case tea.KeyUp:
		if m.running == "" && m.recall > 0 {
			m.recall--
			m.input.SetValue(m.history[m.recall])
			m.input.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if m.running == "" && m.recall < len(m.history) {
			m.recall++
			if m.recall == len(m.history) {
				m.input.Reset()
			} else {
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
		}
		return m, nil
	}

	if m.running != "" {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *wizardModel) runCommand(line string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return wizardDoneMsg{input: line, err: m.w.execute(ctx, line)}
	}
}

func (m *wizardModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m *wizardModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(renderView(m.view, m.w.colorize))
	b.WriteString("\n\n")
	if m.running != "" {
		fmt.Fprintf(&b, "%s %s", m.spinner.View(), m.running)
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	return b.String()
}

// programWriter forwards wizard output to the running program, which
// prints it above the status view. Send is a no-op once the program exits.
type programWriter struct {
	p *tea.Program
}

func (pw programWriter) Write(b []byte) (int, error) {
	pw.p.Send(wizardLineMsg{line: strings.TrimRight(string(b), "\n")})
	return len(b), nil
}

// runWizardUI drives w from an interactive terminal until the user quits.
func runWizardUI(ctx context.Context, w *wizard, in io.Reader, out io.Writer, startup []string) error {
	model := newWizardModel(ctx, w, append(startup, w.greeting(ctx)...))
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	w.mu.Lock()
	w.out = programWriter{p: p}
	w.mu.Unlock()
	w.refresh = func() { p.Send(wizardRefreshMsg{}) }

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("wizard ui: %w", err)
	}
	return nil
}
