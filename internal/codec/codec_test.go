package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"watchlist/internal/domain"
)

func sampleItems() []domain.WorkItem {
	return []domain.WorkItem{
		{
			Title:     "Chainsaw Man",
			Year:      2022,
			Medium:    domain.Anime,
			SiteData:  domain.SiteData{Tracker: domain.Ptr("https://myanimelist.net/anime/44511")},
			WatchData: domain.WatchData{Status: domain.Exhausted, Position: &domain.WatchPosition{Season: 1, Episode: domain.Ptr[uint16](12)}},
			Ongoing:   true,
			Updated:   domain.Date{Year: 2025, Month: time.October, Day: 24},
		},
		{
			Title:     "Bar",
			Year:      1999,
			Medium:    domain.Movie,
			WatchData: domain.WatchData{Status: domain.Exhausted},
			Updated:   domain.Date{Year: 2024, Month: time.January, Day: 2},
		},
		{
			Title:     "The Wire",
			Year:      2002,
			Medium:    domain.TvShow,
			SiteData:  domain.SiteData{Tracker: domain.Ptr(""), Watch: domain.Ptr("https://example.org/wire?a=1&b=2")},
			WatchData: domain.WatchData{Status: domain.Partial, Position: &domain.WatchPosition{Season: 3}},
			Updated:   domain.Date{Year: 2023, Month: time.June, Day: 30},
		},
		{
			Title:     "Line\nbreak \"quoted\" <tag>",
			Year:      65535,
			Medium:    domain.TvShow,
			WatchData: domain.WatchData{Status: domain.Virgin},
			Updated:   domain.Date{Year: 1, Month: time.February, Day: 28},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, item := range sampleItems() {
		line, err := Encode(item)
		if err != nil {
			t.Fatalf("encode %q: %v", item.Title, err)
		}
		if bytes.ContainsAny(line, "\r\n") {
			t.Fatalf("encoded line contains a line break: %s", line)
		}
		got, err := Decode(line)
		if err != nil {
			t.Fatalf("decode %s: %v", line, err)
		}
		if !got.Equal(item) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", item, got)
		}
	}
}

func TestEncodeIsReadable(t *testing.T) {
	line, err := Encode(sampleItems()[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"medium":"Anime"`, `"status":"Exhausted"`, `"updated":"2025-10-24"`, `"watch":null`} {
		if !strings.Contains(string(line), want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	line, err = Encode(sampleItems()[2])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(line), "a=1&b=2") {
		t.Fatalf("expected unescaped ampersand in %s", line)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `Movie "Bar" watched=true`,
		"empty object":    `{}`,
		"unknown medium":  `{"title":"x","year":1,"medium":"Radio","site_data":{"tracker":null,"watch":null},"watch_data":{"status":"Virgin","position":null},"ongoing":false,"updated":"2024-01-01"}`,
		"unknown field":   `{"title":"x","year":1,"medium":"Movie","watch_data":{"status":"Virgin","position":null},"ongoing":false,"updated":"2024-01-01","rating":5}`,
		"year overflow":   `{"title":"x","year":70000,"medium":"Movie","watch_data":{"status":"Virgin","position":null},"ongoing":false,"updated":"2024-01-01"}`,
		"bad date":        `{"title":"x","year":1,"medium":"Movie","watch_data":{"status":"Virgin","position":null},"ongoing":false,"updated":"yesterday"}`,
		"missing season":  `{"title":"x","year":1,"medium":"TvShow","watch_data":{"status":"Partial","position":{"episode":2}},"ongoing":false,"updated":"2024-01-01"}`,
		"trailing object": `{"title":"x","year":1,"medium":"Movie","watch_data":{"status":"Virgin","position":null},"ongoing":false,"updated":"2024-01-01"} {}`,
	}
	for name, line := range cases {
		if _, err := Decode([]byte(line)); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestDecodeRequiresSiteData(t *testing.T) {
	line := `{"title":"Heat","year":1995,"medium":"Movie","watch_data":{"status":"Exhausted","position":null},"ongoing":false,"updated":"2024-05-01"}`
	_, err := Decode([]byte(line))
	if err == nil || !strings.Contains(err.Error(), "site_data") {
		t.Fatalf("expected missing site_data error, got %v", err)
	}

	item, err := Decode([]byte(`{"title":"Heat","year":1995,"medium":"Movie","site_data":{},"watch_data":{"status":"Exhausted","position":null},"ongoing":false,"updated":"2024-05-01"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.SiteData.Tracker != nil || item.SiteData.Watch != nil {
		t.Fatalf("absent links should read as none, got %+v", item.SiteData)
	}
}

func TestEncodeRejectsUnreadableDate(t *testing.T) {
	for _, d := range []domain.Date{{}, {Year: 2024, Month: time.February, Day: 30}} {
		item := sampleItems()[0]
		item.Updated = d
		if _, err := Encode(item); err == nil {
			t.Fatalf("expected encode error for date %s", d)
		}
	}
}
