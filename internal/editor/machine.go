// Package editor edits one WorkItem through a line-based menu.
//
// Machine holds all of the menu logic and never touches a terminal: each call
// to Step feeds it one input line and moves it to the next State. Session
// drives a Machine from a reader and a writer.
//
// A blank line never fails. It leaves the current field unchanged and goes one
// level up; at the top menu it ends the session.
package editor

import (
	"strings"
	"time"

	"watchlist/internal/domain"
)

type State int

const (
	StateTop State = iota
	StateTitle
	StateYear
	StateMedium
	StateMovieWatched
	StateOngoing
	StateWatchStatus
	StateSeason
	StateEpisodeGate
	StateEpisode
	StateSite
	StateSiteTracker
	StateSiteWatch
	StateUpdated
	StateDone
)

var stateNames = map[State]string{
	StateTop:          "top",
	StateTitle:        "title",
	StateYear:         "year",
	StateMedium:       "medium",
	StateMovieWatched: "movie-watched",
	StateOngoing:      "ongoing",
	StateWatchStatus:  "watch-status",
	StateSeason:       "season",
	StateEpisodeGate:  "episode-gate",
	StateEpisode:      "episode",
	StateSite:         "site",
	StateSiteTracker:  "site-tracker",
	StateSiteWatch:    "site-watch",
	StateUpdated:      "updated",
	StateDone:         "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

type Mode int

const (
	ModeEdit Mode = iota
	ModeCreate
)

// transition consumes one trimmed input line in a state, applies its side
// effect to the machine and returns the next state.
type transition func(m *Machine, in string) State

var transitions = map[State]transition{
	StateTop:          (*Machine).top,
	StateTitle:        (*Machine).title,
	StateYear:         (*Machine).year,
	StateMedium:       (*Machine).medium,
	StateMovieWatched: (*Machine).movieWatched,
	StateOngoing:      (*Machine).ongoing,
	StateWatchStatus:  (*Machine).watchStatus,
	StateSeason:       (*Machine).season,
	StateEpisodeGate:  (*Machine).episodeGate,
	StateEpisode:      (*Machine).episode,
	StateSite:         (*Machine).site,
	StateSiteTracker:  (*Machine).siteTracker,
	StateSiteWatch:    (*Machine).siteWatch,
	StateUpdated:      (*Machine).updated,
}

// Machine is the menu state machine for one record.
type Machine struct {
	item     *domain.WorkItem
	mode     Mode
	state    State
	now      func() time.Time
	queue    []State
	draft    progressDraft
	feedback string
	changed  bool
}

// progressDraft holds watch progress until the season/episode path completes.
type progressDraft struct {
	status domain.WatchStatus
	season uint16
}

// NewEdit starts at the top menu of an existing record.
func NewEdit(item *domain.WorkItem, now func() time.Time) *Machine {
	return &Machine{item: item, mode: ModeEdit, state: StateTop, now: nowFunc(now)}
}

// NewCreate fills item with defaults and walks title, year and medium (plus
// the medium's own prompts) before showing the top menu.
func NewCreate(item *domain.WorkItem, now func() time.Time) *Machine {
	now = nowFunc(now)
	*item = domain.New(now())
	return &Machine{
		item:  item,
		mode:  ModeCreate,
		state: StateTitle,
		now:   now,
		queue: []State{StateYear, StateMedium},
	}
}

func nowFunc(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Mode() Mode { return m.mode }

func (m *Machine) Item() *domain.WorkItem { return m.item }

func (m *Machine) Done() bool { return m.state == StateDone }

// Changed reports whether any accepted input altered the record.
func (m *Machine) Changed() bool { return m.changed }

// Feedback is the message produced by the last Step, if any.
func (m *Machine) Feedback() string { return m.feedback }

// Step feeds one input line to the machine.
func (m *Machine) Step(input string) State {
	if m.Done() {
		return m.state
	}
	m.feedback = ""
	m.state = transitions[m.state](m, strings.TrimSpace(input))
	return m.state
}

// next leaves a finished or skipped step: the next guided step if one is
// queued, otherwise the top menu.
func (m *Machine) next() State {
	if len(m.queue) > 0 {
		s := m.queue[0]
		m.queue = m.queue[1:]
		return s
	}
	return StateTop
}

// walk queues states ahead of anything already pending and enters the first.
func (m *Machine) walk(states ...State) State {
	m.queue = append(append([]State{}, states...), m.queue...)
	return m.next()
}

func (m *Machine) reject(err error, stay State) State {
	m.feedback = err.Error()
	return stay
}

func (m *Machine) top(in string) State {
	switch strings.ToLower(in) {
	case "", "0", "done":
		if m.mode == ModeCreate && m.item.Title == "" {
			m.feedback = "title is required"
			return StateTitle
		}
		return StateDone
	case "1", "title":
		return StateTitle
	case "2", "year":
		return StateYear
	case "3", "medium":
		return StateMedium
	case "4", "watch":
		if m.item.Medium.MultiPart() {
			return StateWatchStatus
		}
		return StateMovieWatched
	case "5", "ongoing":
		if !m.item.Medium.MultiPart() {
			m.feedback = "movies cannot be ongoing"
			return StateTop
		}
		return StateOngoing
	case "6", "site":
		return StateSite
	case "7", "updated":
		return StateUpdated
	}
	m.feedback = "unknown choice " + quote(in)
	return StateTop
}

func (m *Machine) title(in string) State {
	if in == "" {
		return m.next()
	}
	m.set(func(w *domain.WorkItem) { w.Title = in })
	return m.next()
}

func (m *Machine) year(in string) State {
	if in == "" {
		return m.next()
	}
	y, err := domain.ParseYear(in)
	if err != nil {
		return m.reject(err, StateYear)
	}
	m.set(func(w *domain.WorkItem) { w.Year = y })
	return m.next()
}

// medium switches variants. A different medium resets the variant block; any
// accepted keyword then walks the variant's own prompts.
func (m *Machine) medium(in string) State {
	if in == "" {
		return m.next()
	}
	med, err := domain.ParseMedium(in)
	if err != nil {
		return m.reject(err, StateMedium)
	}
	m.set(func(w *domain.WorkItem) { w.SetMedium(med) })
	switch med {
	case domain.Movie:
		return m.walk(StateMovieWatched)
	case domain.TvShow, domain.Anime:
		return m.walk(StateOngoing, StateWatchStatus)
	}
	return m.next()
}

func (m *Machine) movieWatched(in string) State {
	if in == "" {
		return m.next()
	}
	watched, err := domain.ParseYesNo("watched", in)
	if err != nil {
		return m.reject(err, StateMovieWatched)
	}
	m.set(func(w *domain.WorkItem) { w.SetVariant(domain.MovieVariant{Watched: watched}) })
	return m.next()
}

func (m *Machine) ongoing(in string) State {
	if in == "" {
		return m.next()
	}
	v, err := domain.ParseYesNo("ongoing", in)
	if err != nil {
		return m.reject(err, StateOngoing)
	}
	m.set(func(w *domain.WorkItem) { w.Ongoing = v })
	return m.next()
}

func (m *Machine) watchStatus(in string) State {
	if in == "" {
		return m.next()
	}
	status, err := domain.ParseWatchStatus(in)
	if err != nil {
		return m.reject(err, StateWatchStatus)
	}
	if !status.Started() {
		m.set(func(w *domain.WorkItem) { w.SetWatch(status, nil) })
		return m.next()
	}
	m.draft = progressDraft{status: status}
	return StateSeason
}

func (m *Machine) season(in string) State {
	if in == "" {
		return StateWatchStatus
	}
	v, err := domain.ParseCount("season", in)
	if err != nil {
		return m.reject(err, StateSeason)
	}
	m.draft.season = v
	return StateEpisodeGate
}

func (m *Machine) episodeGate(in string) State {
	if in == "" {
		return StateSeason
	}
	yes, err := domain.ParseYesNo("episode", in)
	if err != nil {
		return m.reject(err, StateEpisodeGate)
	}
	if yes {
		return StateEpisode
	}
	m.commitProgress(nil)
	return m.next()
}

func (m *Machine) episode(in string) State {
	if in == "" {
		return StateEpisodeGate
	}
	v, err := domain.ParseCount("episode", in)
	if err != nil {
		return m.reject(err, StateEpisode)
	}
	m.commitProgress(&v)
	return m.next()
}

func (m *Machine) commitProgress(episode *uint16) {
	pos := &domain.WatchPosition{Season: m.draft.season, Episode: episode}
	status := m.draft.status
	m.set(func(w *domain.WorkItem) { w.SetWatch(status, pos) })
	m.draft = progressDraft{}
}

func (m *Machine) site(in string) State {
	switch strings.ToLower(in) {
	case "":
		return m.next()
	case "1", "tracker":
		return StateSiteTracker
	case "2", "watch":
		return StateSiteWatch
	}
	m.feedback = "unknown choice " + quote(in)
	return StateSite
}

func (m *Machine) siteTracker(in string) State {
	if in != "" {
		v := linkValue(in)
		m.set(func(w *domain.WorkItem) { w.SiteData.Tracker = v })
	}
	return StateSite
}

func (m *Machine) siteWatch(in string) State {
	if in != "" {
		v := linkValue(in)
		m.set(func(w *domain.WorkItem) { w.SiteData.Watch = v })
	}
	return StateSite
}

// linkValue maps "-" to no link.
func linkValue(in string) *string {
	if in == "-" {
		return nil
	}
	return &in
}

func (m *Machine) updated(in string) State {
	if in == "" {
		return m.next()
	}
	d, err := domain.ParseUpdated(in, m.now())
	if err != nil {
		return m.reject(err, StateUpdated)
	}
	m.set(func(w *domain.WorkItem) { w.Updated = d })
	return m.next()
}

// set applies a mutation and remembers whether the record changed.
func (m *Machine) set(apply func(*domain.WorkItem)) {
	before := m.item.Clone()
	apply(m.item)
	if !m.item.Equal(before) {
		m.changed = true
	}
}

func quote(s string) string { return "\"" + s + "\"" }
