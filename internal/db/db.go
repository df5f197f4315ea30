package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultPath is the journal location relative to the workspace.
const DefaultPath = ".watchlist/history.db"

type Config struct {
	// Path of the database file. Relative paths resolve against Workspace.
	Path      string
	Workspace string
}

func (c Config) resolved() string {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	if filepath.IsAbs(path) {
		return path
	}
	ws := c.Workspace
	if ws == "" {
		ws = "."
	}
	return filepath.Join(ws, path)
}

// EnsureDir creates the directory holding the database if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Open opens the SQLite database, creating its directory first.
func Open(cfg Config) (*sql.DB, error) {
	path := cfg.resolved()
	if err := EnsureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialized for this single-user tool.
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Path returns the resolved db path.
func Path(cfg Config) string {
	return cfg.resolved()
}
