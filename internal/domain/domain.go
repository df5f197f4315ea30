package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Medium classifies a work and decides which watch fields apply.
type Medium int

const (
	Movie Medium = iota
	TvShow
	Anime
)

var mediumNames = [...]string{Movie: "Movie", TvShow: "TvShow", Anime: "Anime"}

func (m Medium) Valid() bool { return m >= Movie && m <= Anime }

func (m Medium) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Medium(%d)", int(m))
	}
	return mediumNames[m]
}

// MultiPart reports whether the medium has seasons/episodes and can be ongoing.
func (m Medium) MultiPart() bool {
	switch m {
	case TvShow, Anime:
		return true
	default:
		return false
	}
}

func (m Medium) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid medium %d", int(m))
	}
	return []byte(mediumNames[m]), nil
}

func (m *Medium) UnmarshalText(b []byte) error {
	for i, name := range mediumNames {
		if string(b) == name {
			*m = Medium(i)
			return nil
		}
	}
	return fmt.Errorf("unknown medium %q", string(b))
}

type WatchStatus int

const (
	Virgin WatchStatus = iota
	Partial
	// Exhausted means finished for a movie or a finished series, and "seen
	// everything released so far" for an ongoing series.
	Exhausted
)

var statusNames = [...]string{Virgin: "Virgin", Partial: "Partial", Exhausted: "Exhausted"}

func (s WatchStatus) Valid() bool { return s >= Virgin && s <= Exhausted }

func (s WatchStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("WatchStatus(%d)", int(s))
	}
	return statusNames[s]
}

// Started reports whether the status implies a watch position.
func (s WatchStatus) Started() bool { return s == Partial || s == Exhausted }

func (s WatchStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid watch status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *WatchStatus) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if string(b) == name {
			*s = WatchStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown watch status %q", string(b))
}

type SiteData struct {
	Tracker *string `json:"tracker"`
	Watch   *string `json:"watch"`
}

// WatchPosition is the last watched point. A nil Episode means the whole
// season was watched.
type WatchPosition struct {
	Season  uint16  `json:"season"`
	Episode *uint16 `json:"episode"`
}

type WatchData struct {
	Status   WatchStatus    `json:"status"`
	Position *WatchPosition `json:"position"`
}

// WorkItem is one tracked work and the unit of storage. Title is the lookup
// key for by-name operations but is not unique.
type WorkItem struct {
	Title     string    `json:"title"`
	Year      uint16    `json:"year"`
	Medium    Medium    `json:"medium"`
	SiteData  SiteData  `json:"site_data"`
	WatchData WatchData `json:"watch_data"`
	Ongoing   bool      `json:"ongoing"`
	Updated   Date      `json:"updated"`
}

// New returns the defaults a freshly created record starts from.
func New(now time.Time) WorkItem {
	return WorkItem{
		Medium:    Movie,
		WatchData: WatchData{Status: Virgin},
		Updated:   DateOf(now),
	}
}

// SetMedium switches the variant. A change resets the medium-specific block
// (watch data and ongoing) to the new variant's defaults; no field is carried
// over.
func (w *WorkItem) SetMedium(m Medium) {
	if w.Medium == m {
		return
	}
	w.SetVariant(DefaultVariant(m))
}

// SetWatch replaces the watch data, dropping the position for Virgin.
func (w *WorkItem) SetWatch(status WatchStatus, pos *WatchPosition) {
	if !status.Started() {
		pos = nil
	}
	w.WatchData = WatchData{Status: status, Position: pos}
}

// Clone returns a deep copy.
func (w WorkItem) Clone() WorkItem {
	out := w
	out.SiteData.Tracker = cloneString(w.SiteData.Tracker)
	out.SiteData.Watch = cloneString(w.SiteData.Watch)
	if w.WatchData.Position != nil {
		pos := *w.WatchData.Position
		if pos.Episode != nil {
			ep := *pos.Episode
			pos.Episode = &ep
		}
		out.WatchData.Position = &pos
	}
	return out
}

// Equal compares by value, following optional fields.
func (w WorkItem) Equal(o WorkItem) bool {
	if w.Title != o.Title || w.Year != o.Year || w.Medium != o.Medium ||
		w.Ongoing != o.Ongoing || w.Updated != o.Updated || w.WatchData.Status != o.WatchData.Status {
		return false
	}
	if !equalString(w.SiteData.Tracker, o.SiteData.Tracker) || !equalString(w.SiteData.Watch, o.SiteData.Watch) {
		return false
	}
	a, b := w.WatchData.Position, o.WatchData.Position
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Season != b.Season {
		return false
	}
	if a.Episode == nil || b.Episode == nil {
		return a.Episode == nil && b.Episode == nil
	}
	return *a.Episode == *b.Episode
}

// Advisories lists soft invariant violations. The store accepts such records;
// the editor and detail views surface them.
func (w WorkItem) Advisories() []string {
	var out []string
	if w.Title == "" {
		out = append(out, "title is empty")
	}
	switch {
	case w.WatchData.Status == Virgin && w.WatchData.Position != nil:
		out = append(out, "position is set although status is Virgin")
	case w.WatchData.Status.Started() && w.WatchData.Position == nil && w.Medium.MultiPart():
		out = append(out, fmt.Sprintf("status is %s but no position is recorded", w.WatchData.Status))
	}
	if w.Medium == Movie && w.Ongoing {
		out = append(out, "movies cannot be ongoing")
	}
	return out
}

// TitleMatches compares titles exactly after NFC normalization, so composed and
// decomposed accents are the same title.
func TitleMatches(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}

func Ptr[T any](v T) *T { return &v }

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
