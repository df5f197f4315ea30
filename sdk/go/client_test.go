package watchlistsdk

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"watchlist/internal/codec"
	"watchlist/internal/db"
	"watchlist/internal/domain"
	"watchlist/internal/engine"
	"watchlist/internal/events"
	"watchlist/internal/server"
	"watchlist/internal/store"
)

func startServer(t *testing.T, secret string) (string, engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "watchlist.jsonl")
	item := domain.WorkItem{
		Title:     "Frieren",
		Year:      2023,
		Medium:    domain.Anime,
		WatchData: domain.WatchData{Status: domain.Exhausted, Position: &domain.WatchPosition{Season: 1}},
		Updated:   domain.Date{Year: 2024, Month: time.April, Day: 1},
	}
	line, err := codec.Encode(item)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, append(line, '\n'), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	journal, err := events.Open(context.Background(), db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	e := engine.New(store.New(path, filepath.Join(dir, "watchlist.temp.jsonl"), nil), journal, nil)
	handler, err := server.New(server.Config{Engine: e, Auth: server.AuthConfig{JWTSecret: secret}})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		journal.Close()
	})
	return "http://" + ln.Addr().String(), e
}

func TestClientRoundTrip(t *testing.T) {
	base, e := startServer(t, "")
	ctx := context.Background()
	c := New(base + "/")
	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	items, err := c.Items(ctx, ItemsQuery{Medium: "Anime"})
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Frieren" || items[0].Season == nil || *items[0].Season != 1 || items[0].Episode != nil {
		t.Fatalf("items %+v", items)
	}

	if err := e.Append(ctx, domain.WorkItem{Title: "Dune", Year: 2021, Medium: domain.Movie, Updated: domain.Date{Year: 2024, Month: time.May, Day: 2}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	hist, err := c.History(ctx, "Dune", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].Kind != "append" || hist[0].After == nil || hist[0].After.Medium != "Movie" {
		t.Fatalf("history %+v", hist)
	}

	_, err = c.Items(ctx, ItemsQuery{Title: "Frieran"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientBearerToken(t *testing.T) {
	base, _ := startServer(t, "s3cret")
	ctx := context.Background()
	c := New(base)
	_, err := c.Items(ctx, ItemsQuery{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "me"}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	c.BearerToken = tok
	if _, err := c.Items(ctx, ItemsQuery{}); err != nil {
		t.Fatalf("items with token: %v", err)
	}
}
