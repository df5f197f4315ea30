package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"watchlist/internal/domain"
	"watchlist/internal/events"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, yaml or toml)", s)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Structured writes v as json, yaml or toml. TOML needs a table at the top, so
// lists go under key.
func Structured(w io.Writer, f Format, key string, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(map[string]any{key: v})
	}
	return fmt.Errorf("format %q is not structured", f)
}

// Table lists records one per row.
func Table(w io.Writer, items []domain.WorkItem) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if IsTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	}
	tw.AppendHeader(table.Row{"Title", "Year", "Medium", "Progress", "Ongoing", "Updated"})
	for _, it := range items {
		ongoing := ""
		if it.Ongoing {
			ongoing = "yes"
		}
		tw.AppendRow(table.Row{it.Title, it.Year, it.Medium, Progress(it), ongoing, it.Updated})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "total", len(items)})
	tw.Render()
}

// Items writes records in the chosen format; text is the table.
func Items(w io.Writer, f Format, items []domain.WorkItem) error {
	if f == FormatText {
		Table(w, items)
		return nil
	}
	return Structured(w, f, "items", NewViews(items))
}

// Cards writes one bordered detail card per record, listing advisories.
func Cards(w io.Writer, items []domain.WorkItem) error {
	r := lipgloss.NewRenderer(w)
	card := r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginBottom(1)
	title := r.NewStyle().Bold(true)
	label := r.NewStyle().Faint(true).Width(9)
	note := r.NewStyle().Foreground(lipgloss.Color("3"))

	for _, it := range items {
		rows := []string{title.Render(fmt.Sprintf("%s (%d)", it.Title, it.Year))}
		field := func(name, value string) {
			if value == "" {
				value = "-"
			}
			rows = append(rows, label.Render(name)+value)
		}
		field("medium", it.Medium.String())
		field("progress", Progress(it))
		if it.Medium.MultiPart() {
			field("ongoing", yesNo(it.Ongoing))
		}
		field("tracker", deref(it.SiteData.Tracker))
		field("watch", deref(it.SiteData.Watch))
		field("updated", it.Updated.String())
		for _, a := range it.Advisories() {
			rows = append(rows, note.Render("! "+a))
		}
		if _, err := fmt.Fprintln(w, card.Render(strings.Join(rows, "\n"))); err != nil {
			return err
		}
	}
	return nil
}

// Details writes records as cards or in a structured format.
func Details(w io.Writer, f Format, items []domain.WorkItem) error {
	if f == FormatText {
		return Cards(w, items)
	}
	return Structured(w, f, "items", NewViews(items))
}

// History writes journal entries, newest first.
func History(w io.Writer, f Format, entries []events.Entry) error {
	if f != FormatText {
		return Structured(w, f, "history", NewHistoryViews(entries))
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if IsTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	}
	tw.AppendHeader(table.Row{"When", "Kind", "Title", "Change"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.At.Local().Format("2006-01-02 15:04"), e.Kind, e.Title, describeChange(e)})
	}
	tw.Render()
	return nil
}

func describeChange(e events.Entry) string {
	switch {
	case e.Before == nil && e.After != nil:
		return Progress(*e.After)
	case e.Before != nil && e.After == nil:
		return "removed"
	case e.Before != nil && e.After != nil:
		from, to := Progress(*e.Before), Progress(*e.After)
		if from == to {
			return "fields updated"
		}
		return from + " -> " + to
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
