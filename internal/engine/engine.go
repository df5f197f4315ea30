package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"

	"watchlist/internal/domain"
	"watchlist/internal/events"
	"watchlist/internal/store"
)

// ErrNoMatch is matched by every *NoMatchError.
var ErrNoMatch = errors.New("no matching record")

// NoMatchError reports a by-name operation that matched nothing, with close
// titles that do exist.
type NoMatchError struct {
	Title       string
	Suggestions []string
}

func (e *NoMatchError) Error() string {
	msg := fmt.Sprintf("no record titled %q", e.Title)
	if len(e.Suggestions) > 0 {
		quoted := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		msg += "; did you mean " + strings.Join(quoted, " or ") + "?"
	}
	return msg
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// RecordEditor edits one record interactively. *editor.Session implements it.
type RecordEditor interface {
	Edit(item *domain.WorkItem, header string) (bool, error)
}

// RecordCreator builds a new record interactively.
type RecordCreator interface {
	Create() (domain.WorkItem, error)
}

type Engine struct {
	Store *store.Store
	// Journal is optional; nil disables history.
	Journal *events.Journal
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

func New(st *store.Store, journal *events.Journal, logger logrus.FieldLogger) Engine {
	return Engine{
		Store:   st,
		Journal: journal,
		Logger:  logger,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() logrus.FieldLogger {
	if e.Logger != nil {
		return e.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ListAll returns every valid record in file order. Malformed lines are
// logged by the store and left out.
func (e Engine) ListAll(ctx context.Context) ([]domain.WorkItem, error) {
	items, _, err := e.Store.ReadAll(ctx)
	return items, err
}

// Details returns every record titled title, in file order.
func (e Engine) Details(ctx context.Context, title string) ([]domain.WorkItem, error) {
	items, err := e.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.WorkItem
	titles := make([]string, 0, len(items))
	for _, it := range items {
		if domain.TitleMatches(it.Title, title) {
			out = append(out, it)
		}
		titles = append(titles, it.Title)
	}
	if len(out) == 0 {
		return nil, &NoMatchError{Title: title, Suggestions: Suggest(title, titles)}
	}
	return out, nil
}

// Append adds item at the end of the data file.
func (e Engine) Append(ctx context.Context, item domain.WorkItem) error {
	if err := e.Store.Append(item); err != nil {
		return err
	}
	e.record(ctx, events.KindAppend, item.Title, nil, &item)
	return nil
}

// Create runs the creator and appends its record. Nothing is written if the
// creator fails.
func (e Engine) Create(ctx context.Context, creator RecordCreator) (domain.WorkItem, error) {
	item, err := creator.Create()
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("create record: %w", err)
	}
	if err := e.Append(ctx, item); err != nil {
		return domain.WorkItem{}, err
	}
	return item, nil
}

// Result describes one edit or remove.
type Result struct {
	Title   string
	Matched int
	Summary store.RewriteSummary
}

type change struct {
	before, after domain.WorkItem
}

// Edit runs ed on every record titled title, one after another, inside one
// rewrite. If any edit fails the data file is left untouched. Zero matches
// leave the file as it was and return a *NoMatchError.
func (e Engine) Edit(ctx context.Context, title string, ed RecordEditor) (Result, error) {
	res := Result{Title: title}
	var (
		changes []change
		titles  []string
	)
	edit := store.EditMatching(title, func(item *domain.WorkItem) error {
		res.Matched++
		before := item.Clone()
		header := fmt.Sprintf("-- %s (%d), match %d", item.Title, item.Year, res.Matched)
		changed, err := ed.Edit(item, header)
		if err != nil {
			return err
		}
		if changed {
			changes = append(changes, change{before: before, after: item.Clone()})
		}
		return nil
	})
	summary, err := e.Store.Rewrite(ctx, func(item *domain.WorkItem) (store.Verdict, error) {
		titles = append(titles, item.Title)
		return edit(item)
	})
	res.Summary = summary
	if err != nil {
		return res, err
	}
	for _, c := range changes {
		e.record(ctx, events.KindEdit, c.before.Title, &c.before, &c.after)
	}
	if res.Matched == 0 {
		return res, &NoMatchError{Title: title, Suggestions: Suggest(title, titles)}
	}
	return res, nil
}

// Remove drops every record titled title.
func (e Engine) Remove(ctx context.Context, title string) (Result, error) {
	res := Result{Title: title}
	var (
		removed []domain.WorkItem
		titles  []string
	)
	drop := store.DropMatching(title)
	summary, err := e.Store.Rewrite(ctx, func(item *domain.WorkItem) (store.Verdict, error) {
		titles = append(titles, item.Title)
		v, err := drop(item)
		if v == store.Drop {
			removed = append(removed, item.Clone())
		}
		return v, err
	})
	res.Summary = summary
	res.Matched = len(removed)
	if err != nil {
		return res, err
	}
	for i := range removed {
		e.record(ctx, events.KindRemove, removed[i].Title, &removed[i], nil)
	}
	if res.Matched == 0 {
		return res, &NoMatchError{Title: title, Suggestions: Suggest(title, titles)}
	}
	return res, nil
}

// History returns the newest journal entries, optionally for one title.
func (e Engine) History(ctx context.Context, title string, limit int) ([]events.Entry, error) {
	if e.Journal == nil {
		return nil, errors.New("history journal is disabled")
	}
	if title != "" {
		entries, err := e.Journal.ForTitle(ctx, title)
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		return entries, nil
	}
	return e.Journal.Recent(ctx, limit)
}

// record journals an operation that already reached the data file. The file
// is authoritative, so a journal failure is only logged.
func (e Engine) record(ctx context.Context, kind events.Kind, title string, before, after *domain.WorkItem) {
	if e.Journal == nil {
		return
	}
	if _, err := e.Journal.Append(ctx, kind, title, before, after); err != nil {
		e.logger().WithFields(logrus.Fields{"kind": kind, "title": title}).WithError(err).Warn("could not journal operation")
	}
}

// maxSuggestions bounds the did-you-mean list.
const maxSuggestions = 3

// Suggest returns up to three distinct titles close to title by edit
// distance, nearest first.
func Suggest(title string, titles []string) []string {
	want := strings.ToLower(title)
	limit := len([]rune(want))/3 + 1
	if limit < 2 {
		limit = 2
	}
	type candidate struct {
		title string
		dist  int
	}
	seen := map[string]bool{}
	var cands []candidate
	for _, t := range titles {
		if seen[t] {
			continue
		}
		seen[t] = true
		lower := strings.ToLower(t)
		d := levenshtein.ComputeDistance(want, lower)
		if strings.Contains(lower, want) && want != "" && d > limit {
			d = limit
		}
		if d <= limit {
			cands = append(cands, candidate{title: t, dist: d})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > maxSuggestions {
		cands = cands[:maxSuggestions]
	}
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.title)
	}
	return out
}
