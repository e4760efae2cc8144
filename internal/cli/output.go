package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/library"
	"github.com/MimeLyc/chapter-translator/internal/progress"
)

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatUpper
	tw.AppendHeader(header)
	return tw
}

// renderLanguages prints the catalogue with the install state of each model.
func renderLanguages(w io.Writer, langs []config.Language, installed []string) {
	tw := newTable(w, table.Row{"Code", "Name", "Native name", "Model"})
	for _, lang := range langs {
		state := "-"
		if slices.Contains(installed, lang.Code) {
			state = "installed"
		}
		tw.AppendRow(table.Row{lang.Code, lang.Name, lang.NativeName, state})
	}
	tw.Render()
}

func renderJobs(w io.Writer, list []*jobs.TranslationJob) {
	tw := newTable(w, table.Row{"ID", "Chapter", "Status", "Progress", "Attempts", "Updated", "Message"})
	for _, job := range list {
		msg := job.Progress.Text
		if job.Error != "" {
			msg = job.Error
		}
		tw.AppendRow(table.Row{
			job.ID,
			chapterLabel(job.Payload),
			statusColor(job.Status).Sprint(string(job.Status)),
			fmt.Sprintf("%3.0f%%", job.Progress.Progress*100),
			job.Attempts,
			job.UpdatedAt.Local().Format(time.DateTime),
			text.Trim(msg, 60),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "Total", len(list)})
	tw.Render()
}

func renderLibrary(w io.Writer, lib *library.Library) {
	tw := newTable(w, table.Row{"Plugin", "Novel", "Chapter", "Name", "Translated name", "State"})
	for _, ch := range lib.Chapters {
		var state string
		switch {
		case !ch.Registered:
			state = color.New(color.Faint).Sprint("unregistered")
		case ch.Translatable:
			state = color.New(color.FgYellow).Sprint("pending")
		default:
			state = color.New(color.FgGreen).Sprint("translated")
		}
		tw.AppendRow(table.Row{ch.PluginID, ch.NovelID, ch.ChapterID, ch.Name, ch.TranslatedName, state})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Chapters", len(lib.Chapters)})
	tw.Render()
}

func chapterLabel(p jobs.ChapterPayload) string {
	if p.ChapterName != "" {
		return fmt.Sprintf("%d %s", p.ChapterID, p.ChapterName)
	}
	return fmt.Sprintf("%d", p.ChapterID)
}

func statusColor(status jobs.Status) *color.Color {
	switch status {
	case jobs.StatusSuccess:
		return color.New(color.FgGreen)
	case jobs.StatusFailed:
		return color.New(color.FgRed)
	case jobs.StatusWaiting:
		return color.New(color.FgYellow)
	case jobs.StatusRunning:
		return color.New(color.FgCyan)
	default:
		return color.New(color.Reset)
	}
}

// progressPrinter writes one line per reported state.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) Observe(state progress.TaskProgress) {
	c := color.New(color.FgCyan)
	switch {
	case state.Terminal() && strings.HasPrefix(state.Text, "Error:"):
		c = color.New(color.FgRed, color.Bold)
	case state.Terminal():
		c = color.New(color.FgGreen, color.Bold)
	case !state.IsRunning:
		c = color.New(color.FgYellow)
	}
	c.Fprintf(p.w, "[%3.0f%%] %s\n", state.Progress*100, state.Text)
}
