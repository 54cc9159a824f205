package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"slidecast/internal/backend"
	"slidecast/internal/notifications"
	"slidecast/internal/stage"
	"slidecast/internal/steps"
	"slidecast/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.Und)

// displayLabel turns identifiers like "update_ppt" into "Update Ppt".
func displayLabel(value string) string {
	value = strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(value))
	return titleCaser.String(value)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	return isTerminal(writer)
}

// isTerminal reports whether stream is a terminal file; stdin and stdout
// are only terminals when they are *os.File.
func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderView draws the wizard status block shown by the REPL.
func renderView(view workflow.View, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader(fmt.Sprintf("Step %d/%d: %s", view.Step, steps.Last, displayLabel(steps.Name(view.Step))), colorize)...)

	if view.FileID == "" {
		lines = append(lines, renderStatusLine("Presentation", statusInfo, "none uploaded", colorize))
	} else {
		name := view.FileID
		if view.FileMeta != nil && view.FileMeta.Name != "" {
			name = fmt.Sprintf("%s (%s)", view.FileMeta.Name, view.FileID)
		}
		lines = append(lines, renderStatusLine("Presentation", statusOK, fmt.Sprintf("%s, %d slides", name, view.SlideCount), colorize))
		scriptKind := statusWarn
		if view.HasScript {
			scriptKind = statusOK
		}
		lines = append(lines, renderStatusLine("Script", scriptKind, yesNo(view.HasScript), colorize))
		if view.AvatarConfig != nil {
			cfg := view.AvatarConfig
			lines = append(lines, renderStatusLine("Avatar", statusOK, fmt.Sprintf("photo %s, emotion %d, max %dpx", cfg.PhotoID, cfg.Emotion, cfg.MaxSize), colorize))
		}
	}
	if view.Step == stage.StepAvatar {
		lines = append(lines, busyStatusLine(view.Busy, colorize))
	}

	lines = append(lines, "", renderStageTable(view.Stages))

	if view.Notice != nil {
		lines = append(lines, "", noticeLine(*view.Notice, colorize))
	}
	return strings.Join(lines, "\n")
}

func renderStageTable(stages []workflow.StageView) string {
	rows := make([][]string, 0, len(stages))
	for _, sv := range stages {
		rows = append(rows, []string{
			fmt.Sprintf("%d", stage.StepFor(sv.Kind)),
			displayLabel(string(sv.Kind)),
			stageStatusText(sv),
			fmt.Sprintf("%d%%", sv.State.Progress),
			sv.JobID,
			stageNote(sv),
		})
	}
	return renderTable("", []string{"Step", "Stage", "Status", "Progress", "Job", "Note"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
}

func stageStatusText(sv workflow.StageView) string {
	if sv.Starting {
		return "Starting"
	}
	status := displayLabel(string(sv.State.Status))
	if sv.State.Trigger == stage.TriggerUpdatePPT && !sv.State.IsIdle() {
		status += " (update ppt)"
	}
	return status
}

func stageNote(sv workflow.StageView) string {
	switch sv.State.Status {
	case stage.StatusFailed:
		return sv.State.Error
	case stage.StatusProcessing:
		return sv.State.Message
	case stage.StatusCompleted:
		if r := sv.State.Result; r != nil {
			switch {
			case r.URLPath != "":
				return r.URLPath
			case len(r.AudioFiles) > 0:
				return fmt.Sprintf("%d audio files", len(r.AudioFiles))
			case len(r.Videos()) > 0:
				return fmt.Sprintf("%d videos", len(r.Videos()))
			}
		}
		return ""
	}
	if !sv.Ready.Ready {
		return "blocked: " + sv.Ready.Detail
	}
	return "ready"
}

func busyStatusLine(busy workflow.BusyView, colorize bool) string {
	switch {
	case !busy.Known:
		return renderStatusLine("Renderer", statusInfo, "checking", colorize)
	case busy.Generating:
		msg := busy.Message
		if msg == "" {
			msg = "another render in progress"
		}
		return renderStatusLine("Renderer", statusWarn, "busy: "+msg, colorize)
	default:
		return renderStatusLine("Renderer", statusOK, "idle", colorize)
	}
}

func noticeLine(n notifications.Notice, colorize bool) string {
	kind := statusError
	if n.Warning() {
		kind = statusWarn
	}
	label := displayLabel(string(n.Category))
	if n.Stage != "" {
		label = displayLabel(n.Stage) + " " + strings.ToLower(label)
	}
	return renderStatusLine(label, kind, n.Message+" (dismiss to clear)", colorize)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func renderVoices(voices []backend.Voice) string {
	if len(voices) == 0 {
		return "No voices available"
	}
	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		rows = append(rows, []string{v.ShortName, v.Locale, v.Gender, v.FriendlyName})
	}
	return renderTable("Voices", []string{"Voice", "Locale", "Gender", "Name"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft})
}
