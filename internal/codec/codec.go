// Package codec maps a WorkItem to and from a single line of JSON.
//
// Variants are written as keywords ("TvShow", "Partial"), absent options as
// null and dates as YYYY-MM-DD, so a line is readable on its own and can be
// fixed by hand.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"watchlist/internal/domain"
)

// Encode renders one record without a trailing newline. JSON escapes every
// control character, so the result never contains a line break.
func Encode(item domain.WorkItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return nil, fmt.Errorf("encode %q: %w", item.Title, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type wirePosition struct {
	Season  *uint16 `json:"season"`
	Episode *uint16 `json:"episode"`
}

type wireWatch struct {
	Status   *domain.WatchStatus `json:"status"`
	Position *wirePosition       `json:"position"`
}

type wireItem struct {
	Title     *string          `json:"title"`
	Year      *uint16          `json:"year"`
	Medium    *domain.Medium   `json:"medium"`
	SiteData  *domain.SiteData `json:"site_data"`
	WatchData *wireWatch       `json:"watch_data"`
	Ongoing   *bool            `json:"ongoing"`
	Updated   *domain.Date     `json:"updated"`
}

// Decode parses one line. Unknown fields, missing required fields and
// trailing data are errors.
func Decode(line []byte) (domain.WorkItem, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	var w wireItem
	if err := dec.Decode(&w); err != nil {
		return domain.WorkItem{}, fmt.Errorf("invalid record: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.WorkItem{}, errors.New("invalid record: trailing data after object")
	}
	return w.item()
}

func (w wireItem) item() (domain.WorkItem, error) {
	var missing []string
	if w.Title == nil {
		missing = append(missing, "title")
	}
	if w.Year == nil {
		missing = append(missing, "year")
	}
	if w.Medium == nil {
		missing = append(missing, "medium")
	}
	if w.SiteData == nil {
		missing = append(missing, "site_data")
	}
	if w.WatchData == nil || w.WatchData.Status == nil {
		missing = append(missing, "watch_data.status")
	}
	if w.WatchData != nil && w.WatchData.Position != nil && w.WatchData.Position.Season == nil {
		missing = append(missing, "watch_data.position.season")
	}
	if w.Ongoing == nil {
		missing = append(missing, "ongoing")
	}
	if w.Updated == nil {
		missing = append(missing, "updated")
	}
	if len(missing) > 0 {
		return domain.WorkItem{}, fmt.Errorf("invalid record: missing %v", missing)
	}
	item := domain.WorkItem{
		Title:     *w.Title,
		Year:      *w.Year,
		Medium:    *w.Medium,
		SiteData:  *w.SiteData,
		WatchData: domain.WatchData{Status: *w.WatchData.Status},
		Ongoing:   *w.Ongoing,
		Updated:   *w.Updated,
	}
	if p := w.WatchData.Position; p != nil {
		item.WatchData.Position = &domain.WatchPosition{Season: *p.Season, Episode: p.Episode}
	}
	return item, nil
}
