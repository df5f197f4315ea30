// Package events records an append-only history of store operations in
// SQLite. The data file stays the only source of truth for records; the
// journal is informational and may be missing or behind.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"watchlist/internal/codec"
	"watchlist/internal/db"
	"watchlist/internal/domain"
	"watchlist/internal/migrate"
)

type Kind string

const (
	KindAppend Kind = "append"
	KindEdit   Kind = "edit"
	KindRemove Kind = "remove"
)

// Entry is one journaled operation on one record. Before is nil for appends
// and After is nil for removals.
type Entry struct {
	ID     string           `json:"id"`
	At     time.Time        `json:"at"`
	Kind   Kind             `json:"kind"`
	Title  string           `json:"title"`
	Before *domain.WorkItem `json:"before,omitempty"`
	After  *domain.WorkItem `json:"after,omitempty"`
}

type Journal struct {
	DB    *sql.DB
	Now   func() time.Time
	NewID func() string
}

// Open opens and migrates the journal database described by cfg.
func Open(ctx context.Context, cfg db.Config) (*Journal, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{DB: conn}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.DB == nil {
		return nil
	}
	return j.DB.Close()
}

func (j *Journal) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *Journal) newID() string {
	if j.NewID != nil {
		return j.NewID()
	}
	return uuid.NewString()
}

// Append stores one entry and returns it with its id and timestamp filled in.
func (j *Journal) Append(ctx context.Context, kind Kind, title string, before, after *domain.WorkItem) (Entry, error) {
	e := Entry{ID: j.newID(), At: j.now().UTC(), Kind: kind, Title: title, Before: before, After: after}
	beforeJSON, err := encodeItem(before)
	if err != nil {
		return Entry{}, fmt.Errorf("encode before: %w", err)
	}
	afterJSON, err := encodeItem(after)
	if err != nil {
		return Entry{}, fmt.Errorf("encode after: %w", err)
	}
	_, err = j.DB.ExecContext(ctx, `INSERT INTO history(id,ts,kind,title,before_json,after_json) VALUES (?,?,?,?,?,?)`,
		e.ID, e.At.Format(time.RFC3339Nano), string(kind), title, beforeJSON, afterJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id,ts,kind,title,before_json,after_json FROM history ORDER BY ts DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return j.query(ctx, q, args...)
}

// ForTitle returns every entry for a title, newest first.
func (j *Journal) ForTitle(ctx context.Context, title string) ([]Entry, error) {
	return j.query(ctx, `SELECT id,ts,kind,title,before_json,after_json FROM history WHERE title=? ORDER BY ts DESC, rowid DESC`, title)
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := j.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e             Entry
			ts, kind      string
			before, after sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &kind, &e.Title, &before, &after); err != nil {
			return nil, err
		}
		if e.At, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("history %s: bad timestamp: %w", e.ID, err)
		}
		e.Kind = Kind(kind)
		if e.Before, err = decodeItem(before); err != nil {
			return nil, fmt.Errorf("history %s: %w", e.ID, err)
		}
		if e.After, err = decodeItem(after); err != nil {
			return nil, fmt.Errorf("history %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func encodeItem(item *domain.WorkItem) (any, error) {
	if item == nil {
		return nil, nil
	}
	line, err := codec.Encode(*item)
	if err != nil {
		return nil, err
	}
	return string(line), nil
}

func decodeItem(s sql.NullString) (*domain.WorkItem, error) {
	if !s.Valid {
		return nil, nil
	}
	item, err := codec.Decode([]byte(s.String))
	if err != nil {
		return nil, err
	}
	return &item, nil
}
