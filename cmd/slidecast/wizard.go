package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/notifications"
	"slidecast/internal/services"
	"slidecast/internal/session"
	"slidecast/internal/stage"
	"slidecast/internal/steps"
	"slidecast/internal/workflow"
)

const wizardPrompt = "slidecast> "

var errQuit = errors.New("quit")

// wizard executes commands against a workflow.Manager. The terminal UI and
// the line mode used for piped input share it. Observer and banner
// callbacks arrive from poller goroutines, so every write goes through
// println.
type wizard struct {
	m        *workflow.Manager
	out      io.Writer
	colorize bool
	// refresh is called after every background update; the terminal UI
	// redraws its status view from it.
	refresh func()

	mu         sync.Mutex
	lastStatus map[string]stage.Status
	noticed    bool
}

func newWizard(out io.Writer, colorize bool) *wizard {
	return &wizard{
		out:        out,
		colorize:   colorize,
		refresh:    func() {},
		lastStatus: make(map[string]stage.Status),
	}
}

func (w *wizard) attach(m *workflow.Manager) { w.m = m }

func (w *wizard) println(lines ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(w.out, line)
	}
}

// observe prints stage status transitions; progress ticks only show in
// the status view.
func (w *wizard) observe(u workflow.Update) {
	defer w.refresh()
	switch u.Kind {
	case workflow.UpdateStep:
		w.println(fmt.Sprintf("-> step %d: %s", u.Step, displayLabel(steps.Name(u.Step))))
	case workflow.UpdateBusy:
		if u.Busy {
			w.println(renderStatusLine("Renderer", statusWarn, "busy: "+u.Message, w.colorize))
		} else {
			w.println(renderStatusLine("Renderer", statusOK, "idle", w.colorize))
		}
	case workflow.UpdateUpload:
		w.println(fmt.Sprintf("   parsing %d%% %s", u.State.Progress, u.Message))
	default:
		w.mu.Lock()
		prev := w.lastStatus[u.Kind]
		w.lastStatus[u.Kind] = u.State.Status
		w.mu.Unlock()
		if prev == u.State.Status {
			return
		}
		kind := statusInfo
		switch u.State.Status {
		case stage.StatusCompleted:
			kind = statusOK
		case stage.StatusFailed:
			kind = statusError
		}
		w.println(renderStatusLine(displayLabel(u.Kind), kind, displayLabel(string(u.State.Status)), w.colorize))
	}
}

func (w *wizard) onNotice(n notifications.Notice, active bool) {
	defer w.refresh()
	if !active {
		return
	}
	w.mu.Lock()
	w.noticed = true
	w.mu.Unlock()
	w.println(noticeLine(n, w.colorize))
}

// greeting returns the lines shown before the first prompt.
func (w *wizard) greeting(ctx context.Context) []string {
	lines := []string{"Type 'help' for commands."}
	if saved, ok, err := w.m.SavedSession(ctx); err != nil {
		lines = append(lines, renderStatusLine("Saved session", statusWarn, err.Error(), w.colorize))
	} else if ok && saved.Persistable() {
		lines = append(lines, renderStatusLine("Saved session", statusInfo, describeSaved(saved)+"; type 'resume' or 'discard'", w.colorize))
	}
	return lines
}

// execute runs one input line. It returns errQuit when the wizard should
// stop; other errors are printed unless the banner already showed them.
func (w *wizard) execute(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}
	w.mu.Lock()
	w.noticed = false
	w.mu.Unlock()

	err := w.dispatch(ctx, fields)
	if errors.Is(err, errQuit) {
		return errQuit
	}
	w.mu.Lock()
	noticed := w.noticed
	w.mu.Unlock()
	if err != nil && !noticed {
		w.println("error: " + err.Error())
	}
	return nil
}

// runLines reads commands from in until quit or end of input.
func (w *wizard) runLines(ctx context.Context, in io.Reader, startup []string) error {
	w.println(startup...)
	w.println(w.greeting(ctx)...)

	scanner := bufio.NewScanner(in)
	for {
		w.mu.Lock()
		fmt.Fprint(w.out, wizardPrompt)
		w.mu.Unlock()

		if !scanner.Scan() {
			w.println("")
			return scanner.Err()
		}
		if err := w.execute(ctx, scanner.Text()); errors.Is(err, errQuit) {
			return nil
		}
	}
}

func (w *wizard) dispatch(ctx context.Context, fields []string) error {
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "help", "?":
		w.println(wizardHelp)
		return nil
	case "quit", "exit":
		return errQuit
	case "status":
		w.println(renderView(w.m.View(), w.colorize))
		return nil
	case "upload":
		if len(args) != 1 {
			return usage("upload <path>")
		}
		return w.m.Upload(ctx, args[0])
	case "script":
		if len(args) > 0 && args[0] == "clear" {
			return w.m.ClearScript(ctx)
		}
		req, err := parseScriptArgs(args)
		if err != nil {
			return err
		}
		w.println("generating script...")
		return w.m.GenerateScript(ctx, req)
	case "translate":
		if len(args) == 0 {
			return usage("translate <language>")
		}
		w.println("translating script...")
		return w.m.TranslateScript(ctx, strings.Join(args, " "))
	case "voices":
		language := ""
		if len(args) > 0 {
			language = args[0]
		}
		voices, err := w.m.Voices(ctx, language)
		if err != nil {
			return err
		}
		w.println(renderVoices(voices))
		return nil
	case "speak":
		if len(args) < 1 || len(args) > 2 {
			return usage("speak opening|<slide> [voice=<name>]")
		}
		voice := ""
		if len(args) == 2 {
			key, value, ok := strings.Cut(args[1], "=")
			if !ok || key != "voice" || value == "" {
				return usage("speak opening|<slide> [voice=<name>]")
			}
			voice = value
		}
		result, err := w.m.PreviewSpeech(ctx, args[0], voice)
		if err != nil {
			return err
		}
		w.println(fmt.Sprintf("preview audio: %s (%s)", result.URLPath, result.Path))
		return nil
	case "next":
		_, err := w.m.Advance(ctx)
		return err
	case "back":
		_, err := w.m.Back(ctx)
		return err
	case "jump":
		if len(args) != 1 {
			return usage("jump <step>")
		}
		step, err := strconv.Atoi(args[0])
		if err != nil {
			return usage("jump <step>")
		}
		_, err = w.m.JumpTo(ctx, step)
		return err
	case "audio", "assemble", "avatar":
		return w.stageCommand(ctx, jobs.Kind(cmd), args)
	case "update-ppt":
		return w.m.UpdatePPT(ctx)
	case "dismiss":
		w.m.Banner().Dismiss()
		return nil
	case "resume":
		saved, err := w.m.Resume(ctx)
		if err != nil {
			return err
		}
		w.println("resumed " + describeSaved(saved))
		return nil
	case "discard":
		return w.m.Discard(ctx)
	case "reset":
		return w.m.Reset(ctx)
	case "unlock":
		confirmed := len(args) == 1 && args[0] == "--yes"
		if !confirmed {
			w.println("force unlock may abort another user's render; run 'unlock --yes' to confirm")
		}
		return w.m.ForceUnlock(ctx, confirmed)
	default:
		return usage(fmt.Sprintf("unknown command %q; type 'help'", cmd))
	}
}

func (w *wizard) stageCommand(ctx context.Context, kind jobs.Kind, args []string) error {
	action := "start"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}
	switch action {
	case "start":
		return w.m.Start(ctx, kind, workflow.StartOptions{})
	case "preview":
		if kind != jobs.Avatar {
			return usage("preview is only available for avatar")
		}
		return w.m.Start(ctx, kind, workflow.StartOptions{Preview: true})
	case "regenerate":
		return w.m.Regenerate(ctx, kind)
	case "wait":
		outcome, ok := w.m.Wait(ctx, kind)
		if !ok {
			w.println(fmt.Sprintf("%s has no running job", kind))
			return nil
		}
		w.println(fmt.Sprintf("%s poll %s", kind, outcome))
		return nil
	case "photo":
		if kind != jobs.Avatar {
			return usage("photo is only available for avatar")
		}
		if len(args) != 2 {
			return usage("avatar photo <path>")
		}
		uploaded, err := w.m.UploadAvatarPhoto(ctx, args[1])
		if err != nil {
			return err
		}
		w.println("avatar photo set to " + uploaded.PhotoID)
		return nil
	case "config":
		if kind != jobs.Avatar {
			return usage("config is only available for avatar")
		}
		if len(args) == 2 && args[1] == "clear" {
			return w.m.ConfigureAvatar(ctx, nil)
		}
		cfg, err := parseAvatarArgs(w.m.Session().AvatarConfig, args[1:])
		if err != nil {
			return err
		}
		return w.m.ConfigureAvatar(ctx, cfg)
	case "busy":
		if kind != jobs.Avatar {
			return usage("busy is only available for avatar")
		}
		w.println(busyStatusLine(w.m.RefreshBusy(ctx), w.colorize))
		return nil
	default:
		return usage(fmt.Sprintf("%s start|regenerate|wait", kind))
	}
}

func usage(msg string) error {
	return services.Wrap(services.ErrValidation, "", "usage", msg, nil)
}

func describeSaved(s session.Session) string {
	name := s.FileID
	if s.FileMeta != nil && s.FileMeta.Name != "" {
		name = s.FileMeta.Name
	}
	desc := fmt.Sprintf("%s at step %d (%s)", name, s.CurrentStep, steps.Name(s.CurrentStep))
	if at := s.SavedAt(); !at.IsZero() {
		desc += ", saved " + at.Local().Format(time.DateTime)
	}
	return desc
}

// parseScriptArgs reads key=value pairs; underscores in values stand for
// spaces so free text fits in one field.
func parseScriptArgs(args []string) (backend.ScriptConfig, error) {
	var req backend.ScriptConfig
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return req, usage(fmt.Sprintf("script: expected key=value, got %q", arg))
		}
		text := strings.ReplaceAll(value, "_", " ")
		switch strings.ToLower(key) {
		case "duration":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return req, usage("script: duration must be a positive number of seconds")
			}
			req.DurationSec = n
		case "language":
			req.Language = value
		case "audience":
			req.Audience = text
		case "purpose":
			req.Purpose = text
		case "context":
			req.Context = text
		case "tone":
			req.Tone = text
		case "transitions":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return req, usage("script: transitions must be true or false")
			}
			req.IncludeTransitions = &b
		case "provider":
			req.Provider = value
		case "model":
			req.Model = value
		default:
			return req, usage(fmt.Sprintf("script: unknown option %q", key))
		}
	}
	return req, nil
}

// parseAvatarArgs applies key=value overrides on top of base.
func parseAvatarArgs(base *session.AvatarConfig, args []string) (*session.AvatarConfig, error) {
	var cfg session.AvatarConfig
	if base != nil {
		cfg = *base
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return nil, usage(fmt.Sprintf("avatar config: expected key=value, got %q", arg))
		}
		var err error
		switch strings.ToLower(key) {
		case "photo":
			cfg.PhotoID = value
		case "emotion":
			cfg.Emotion, err = strconv.Atoi(value)
		case "crop":
			cfg.CropScale, err = strconv.ParseFloat(value, 64)
		case "steps":
			cfg.SamplingSteps, err = strconv.Atoi(value)
		case "size":
			cfg.MaxSize, err = strconv.Atoi(value)
		default:
			return nil, usage(fmt.Sprintf("avatar config: unknown option %q", key))
		}
		if err != nil {
			return nil, usage(fmt.Sprintf("avatar config: invalid %s %q", key, value))
		}
	}
	return &cfg, nil
}

const wizardHelp = `Commands:
  status                          Show the current step and stage table
  upload <path>                   Upload a deck and wait for slide parsing
  script [key=value ...]          Generate narration (duration, language, audience,
                                  purpose, context, tone, transitions, provider, model)
  script clear                    Drop the script and return to slides
  translate <language>            Replace the script with a translation
  voices [language]               List text-to-speech voices
  speak opening|<slide> [voice=]  Synthesize one script section as a preview
  next | back | jump <step>       Move between steps
  audio|assemble start            Start the stage on its own step
  avatar start|preview            Render avatar videos (preview renders 5s)
  <stage> regenerate              Reset the stage and everything downstream
  <stage> wait                    Block until the stage's poll ends
  avatar photo <path>             Upload a JPG or PNG presenter photo
  avatar config key=value ...     Set photo, emotion, crop, steps, size
  avatar config clear             Remove the avatar settings
  avatar busy                     Check the avatar renderer now
  update-ppt                      Re-assemble with videos inferred from audio
  unlock --yes                    Force-clear the renderer lock
  dismiss                         Clear the current notice
  resume | discard | reset        Manage the saved session
  quit                            Leave; running jobs can be resumed later`
