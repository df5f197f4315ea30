package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidationError reports user input that does not fit a field's type.
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %q %s", e.Field, e.Input, e.Reason)
}

func invalid(field, input, reason string) *ValidationError {
	return &ValidationError{Field: field, Input: input, Reason: reason}
}

// ParseMedium matches the keywords movie, tvshow and anime, case-insensitively.
func ParseMedium(s string) (Medium, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "m":
		return Movie, nil
	case "tvshow", "tv", "t":
		return TvShow, nil
	case "anime", "a":
		return Anime, nil
	}
	return 0, invalid("medium", s, "is not one of movie, tvshow, anime")
}

func ParseWatchStatus(s string) (WatchStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "virgin", "v":
		return Virgin, nil
	case "partial", "p":
		return Partial, nil
	case "exhausted", "finished", "e":
		return Exhausted, nil
	}
	return 0, invalid("status", s, "is not one of virgin, partial, exhausted")
}

// ParseYear accepts any value that fits the 16-bit year field.
func ParseYear(s string) (uint16, error) {
	return parseUint16("year", s)
}

// ParseCount parses a season or episode number.
func ParseCount(field, s string) (uint16, error) {
	return parseUint16(field, s)
}

func parseUint16(field, s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, invalid(field, s, "is not a number between 0 and 65535")
	}
	return uint16(v), nil
}

func ParseYesNo(field, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true":
		return true, nil
	case "n", "no", "false":
		return false, nil
	}
	return false, invalid(field, s, "is not y or n")
}

// ParseUpdated accepts YYYY-MM-DD or the keyword today.
func ParseUpdated(s string, now time.Time) (Date, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "today") {
		return DateOf(now), nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, invalid("updated", s, "is not a YYYY-MM-DD date")
	}
	return d, nil
}
