package editor

import (
	"fmt"
	"strings"

	"watchlist/internal/domain"
)

// View renders the record and the top menu.
func (m *Machine) View() string {
	w := m.item
	var b strings.Builder
	fmt.Fprintf(&b, "  1) title    %s\n", orNone(w.Title))
	fmt.Fprintf(&b, "  2) year     %d\n", w.Year)
	fmt.Fprintf(&b, "  3) medium   %s\n", w.Medium)
	fmt.Fprintf(&b, "  4) watch    %s\n", describeWatch(*w))
	if w.Medium.MultiPart() {
		fmt.Fprintf(&b, "  5) ongoing  %s\n", yesNo(w.Ongoing))
	}
	fmt.Fprintf(&b, "  6) site     tracker=%s watch=%s\n", orNone(deref(w.SiteData.Tracker)), orNone(deref(w.SiteData.Watch)))
	fmt.Fprintf(&b, "  7) updated  %s\n", w.Updated)
	for _, a := range w.Advisories() {
		fmt.Fprintf(&b, "  note: %s\n", a)
	}
	b.WriteString("  0) done\n")
	return b.String()
}

// Prompt is the question asked in the current state, with the current value
// where there is one.
func (m *Machine) Prompt() string {
	w := m.item
	switch m.state {
	case StateTop:
		return "choice [done]: "
	case StateTitle:
		return fmt.Sprintf("title [%s]: ", w.Title)
	case StateYear:
		return fmt.Sprintf("year [%d]: ", w.Year)
	case StateMedium:
		return fmt.Sprintf("medium (movie, tvshow, anime) [%s]: ", w.Medium)
	case StateMovieWatched:
		watched := false
		if v, ok := w.Variant().(domain.MovieVariant); ok {
			watched = v.Watched
		}
		return fmt.Sprintf("watched? (y/n) [%s]: ", yesNo(watched))
	case StateOngoing:
		return fmt.Sprintf("ongoing? (y/n) [%s]: ", yesNo(w.Ongoing))
	case StateWatchStatus:
		return fmt.Sprintf("status (virgin, partial, exhausted) [%s]: ", w.WatchData.Status)
	case StateSeason:
		cur := ""
		if p := w.WatchData.Position; p != nil {
			cur = fmt.Sprint(p.Season)
		}
		return fmt.Sprintf("season [%s]: ", cur)
	case StateEpisodeGate:
		return "record an episode? (y/n): "
	case StateEpisode:
		cur := ""
		if p := w.WatchData.Position; p != nil && p.Episode != nil {
			cur = fmt.Sprint(*p.Episode)
		}
		return fmt.Sprintf("episode [%s]: ", cur)
	case StateSite:
		return "site link (1 tracker, 2 watch) [back]: "
	case StateSiteTracker:
		return fmt.Sprintf("tracker url, - to clear [%s]: ", deref(w.SiteData.Tracker))
	case StateSiteWatch:
		return fmt.Sprintf("watch url, - to clear [%s]: ", deref(w.SiteData.Watch))
	case StateUpdated:
		return fmt.Sprintf("updated (YYYY-MM-DD or today) [%s]: ", w.Updated)
	}
	return ""
}

func describeWatch(w domain.WorkItem) string {
	switch v := w.Variant().(type) {
	case domain.MovieVariant:
		if v.Watched {
			return "watched"
		}
		return "not watched"
	case domain.SeriesVariant:
		switch {
		case v.Position == nil:
			return v.Status.String()
		case v.Position.Episode == nil:
			return fmt.Sprintf("%s, season %d", v.Status, v.Position.Season)
		default:
			return fmt.Sprintf("%s, season %d episode %d", v.Status, v.Position.Season, *v.Position.Episode)
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "y"
	}
	return "n"
}
