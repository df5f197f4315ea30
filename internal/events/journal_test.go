package events_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"watchlist/internal/db"
	"watchlist/internal/domain"
	"watchlist/internal/events"
)

func newTestJournal(t *testing.T) *events.Journal {
	t.Helper()
	j, err := events.Open(context.Background(), db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	j.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	ids := 0
	j.NewID = func() string {
		ids++
		return fmt.Sprintf("evt-%d", ids)
	}
	return j
}

func item(title string) *domain.WorkItem {
	return &domain.WorkItem{
		Title:     title,
		Year:      2001,
		Medium:    domain.Anime,
		WatchData: domain.WatchData{Status: domain.Partial, Position: &domain.WatchPosition{Season: 2}},
		Updated:   domain.Date{Year: 2026, Month: time.January, Day: 1},
	}
}

func TestAppendAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	if _, err := j.Append(ctx, events.KindAppend, "Foo", nil, item("Foo")); err != nil {
		t.Fatalf("append: %v", err)
	}
	edited := item("Foo")
	edited.WatchData.Status = domain.Exhausted
	if _, err := j.Append(ctx, events.KindEdit, "Foo", item("Foo"), edited); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := j.Append(ctx, events.KindRemove, "Bar", item("Bar"), nil); err != nil {
		t.Fatalf("remove: %v", err)
	}

	all, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].ID != "evt-3" || all[0].Kind != events.KindRemove || all[0].After != nil || all[0].Before == nil {
		t.Fatalf("newest entry %+v", all[0])
	}
	if all[1].After == nil || all[1].After.WatchData.Status != domain.Exhausted {
		t.Fatalf("edit payload %+v", all[1])
	}
	if all[2].Before != nil || !all[2].After.Equal(*item("Foo")) {
		t.Fatalf("append payload %+v", all[2])
	}

	limited, err := j.Recent(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit: %d %v", len(limited), err)
	}

	foo, err := j.ForTitle(ctx, "Foo")
	if err != nil || len(foo) != 2 {
		t.Fatalf("for title: %d %v", len(foo), err)
	}
}

func TestRejectsUnknownKind(t *testing.T) {
	j := newTestJournal(t)
	if _, err := j.Append(context.Background(), events.Kind("rename"), "Foo", nil, item("Foo")); err == nil {
		t.Fatalf("expected constraint failure")
	}
}
