package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"watchlist/internal/domain"
	"watchlist/internal/events"
)

func sample() []domain.WorkItem {
	return []domain.WorkItem{
		{
			Title:     "Foo",
			Year:      2019,
			Medium:    domain.TvShow,
			SiteData:  domain.SiteData{Tracker: domain.Ptr("https://tracker.example/foo")},
			WatchData: domain.WatchData{Status: domain.Partial, Position: &domain.WatchPosition{Season: 1, Episode: domain.Ptr[uint16](3)}},
			Ongoing:   true,
			Updated:   domain.Date{Year: 2025, Month: time.March, Day: 1},
		},
		{
			Title:     "Bar",
			Year:      1999,
			Medium:    domain.Movie,
			WatchData: domain.WatchData{Status: domain.Exhausted},
			Ongoing:   true,
			Updated:   domain.Date{Year: 2025, Month: time.March, Day: 2},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "yaml": FormatYAML, " toml ": FormatTOML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("%q: %q %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestProgress(t *testing.T) {
	items := sample()
	if got := Progress(items[0]); got != "Partial S1E3" {
		t.Fatalf("series progress %q", got)
	}
	if got := Progress(items[1]); got != "watched" {
		t.Fatalf("movie progress %q", got)
	}
	items[0].WatchData.Position.Episode = nil
	if got := Progress(items[0]); got != "Partial S1" {
		t.Fatalf("season-only progress %q", got)
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Items(&buf, FormatText, sample()); err != nil {
		t.Fatalf("items: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"TITLE", "Foo", "Partial S1E3", "Bar", "watched", "2025-03-02", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestCardsShowAdvisories(t *testing.T) {
	var buf bytes.Buffer
	if err := Details(&buf, FormatText, sample()); err != nil {
		t.Fatalf("details: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Foo (2019)", "https://tracker.example/foo", "Bar (1999)", "! movies cannot be ongoing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("cards missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("escape codes written to a non-terminal")
	}
}

func TestStructuredFormats(t *testing.T) {
	items := sample()

	var js bytes.Buffer
	if err := Details(&js, FormatJSON, items); err != nil {
		t.Fatalf("json: %v", err)
	}
	var views []View
	if err := json.Unmarshal(js.Bytes(), &views); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(views) != 2 || *views[0].Episode != 3 || views[1].Season != nil || views[1].Notes[0] != "movies cannot be ongoing" {
		t.Fatalf("json views %+v", views)
	}

	var ym bytes.Buffer
	if err := Items(&ym, FormatYAML, items); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var yviews []View
	if err := yaml.Unmarshal(ym.Bytes(), &yviews); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(yviews) != 2 || yviews[0].Tracker != "https://tracker.example/foo" {
		t.Fatalf("yaml views %+v", yviews)
	}

	var tm bytes.Buffer
	if err := Items(&tm, FormatTOML, items); err != nil {
		t.Fatalf("toml: %v", err)
	}
	if !strings.Contains(tm.String(), "[[items]]") {
		t.Fatalf("toml output:\n%s", tm.String())
	}
	var doc struct {
		Items []View `toml:"items"`
	}
	if err := toml.Unmarshal(tm.Bytes(), &doc); err != nil {
		t.Fatalf("decode toml: %v", err)
	}
	if len(doc.Items) != 2 || doc.Items[1].Medium != "Movie" {
		t.Fatalf("toml views %+v", doc.Items)
	}
}

func TestHistoryTable(t *testing.T) {
	items := sample()
	after := items[0].Clone()
	after.WatchData.Status = domain.Exhausted
	entries := []events.Entry{
		{ID: "2", At: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), Kind: events.KindEdit, Title: "Foo", Before: &items[0], After: &after},
		{ID: "1", At: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Kind: events.KindRemove, Title: "Bar", Before: &items[1]},
	}
	var buf bytes.Buffer
	if err := History(&buf, FormatText, entries); err != nil {
		t.Fatalf("history: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"edit", "Partial S1E3 -> Exhausted S1E3", "remove", "removed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q:\n%s", want, out)
		}
	}

	var js bytes.Buffer
	if err := History(&js, FormatJSON, entries); err != nil {
		t.Fatalf("history json: %v", err)
	}
	var hv []HistoryView
	if err := json.Unmarshal(js.Bytes(), &hv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hv) != 2 || hv[1].After != nil || hv[0].At != "2025-03-02T10:00:00Z" {
		t.Fatalf("history views %+v", hv)
	}
}
