// Package render prints records for people (tables, detail cards) and for
// programs (json, yaml, toml).
package render

import (
	"fmt"
	"time"

	"watchlist/internal/domain"
	"watchlist/internal/events"
)

// View is the flat shape records take in structured output.
type View struct {
	Title   string   `json:"title" yaml:"title" toml:"title"`
	Year    uint16   `json:"year" yaml:"year" toml:"year"`
	Medium  string   `json:"medium" yaml:"medium" toml:"medium"`
	Status  string   `json:"status" yaml:"status" toml:"status"`
	Season  *uint16  `json:"season,omitempty" yaml:"season,omitempty" toml:"season,omitempty"`
	Episode *uint16  `json:"episode,omitempty" yaml:"episode,omitempty" toml:"episode,omitempty"`
	Ongoing bool     `json:"ongoing" yaml:"ongoing" toml:"ongoing"`
	Tracker string   `json:"tracker,omitempty" yaml:"tracker,omitempty" toml:"tracker,omitempty"`
	Watch   string   `json:"watch,omitempty" yaml:"watch,omitempty" toml:"watch,omitempty"`
	Updated string   `json:"updated" yaml:"updated" toml:"updated"`
	Notes   []string `json:"notes,omitempty" yaml:"notes,omitempty" toml:"notes,omitempty"`
}

func NewView(item domain.WorkItem) View {
	v := View{
		Title:   item.Title,
		Year:    item.Year,
		Medium:  item.Medium.String(),
		Status:  item.WatchData.Status.String(),
		Ongoing: item.Ongoing,
		Updated: item.Updated.String(),
		Notes:   item.Advisories(),
	}
	if p := item.WatchData.Position; p != nil {
		season := p.Season
		v.Season = &season
		if p.Episode != nil {
			ep := *p.Episode
			v.Episode = &ep
		}
	}
	if item.SiteData.Tracker != nil {
		v.Tracker = *item.SiteData.Tracker
	}
	if item.SiteData.Watch != nil {
		v.Watch = *item.SiteData.Watch
	}
	return v
}

func NewViews(items []domain.WorkItem) []View {
	out := make([]View, 0, len(items))
	for _, it := range items {
		out = append(out, NewView(it))
	}
	return out
}

// HistoryView is a journal entry in structured output.
type HistoryView struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	At     string `json:"at" yaml:"at" toml:"at"`
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	Title  string `json:"title" yaml:"title" toml:"title"`
	Before *View  `json:"before,omitempty" yaml:"before,omitempty" toml:"before,omitempty"`
	After  *View  `json:"after,omitempty" yaml:"after,omitempty" toml:"after,omitempty"`
}

func NewHistoryViews(entries []events.Entry) []HistoryView {
	out := make([]HistoryView, 0, len(entries))
	for _, e := range entries {
		hv := HistoryView{ID: e.ID, At: e.At.UTC().Format(time.RFC3339), Kind: string(e.Kind), Title: e.Title}
		if e.Before != nil {
			v := NewView(*e.Before)
			hv.Before = &v
		}
		if e.After != nil {
			v := NewView(*e.After)
			hv.After = &v
		}
		out = append(out, hv)
	}
	return out
}

// Progress is the one-line watch summary used in tables and cards.
func Progress(item domain.WorkItem) string {
	switch v := item.Variant().(type) {
	case domain.MovieVariant:
		if v.Watched {
			return "watched"
		}
		return "not watched"
	case domain.SeriesVariant:
		label := v.Status.String()
		if v.Position != nil {
			label += fmt.Sprintf(" S%d", v.Position.Season)
			if v.Position.Episode != nil {
				label += fmt.Sprintf("E%d", *v.Position.Episode)
			}
		}
		return label
	}
	return ""
}
