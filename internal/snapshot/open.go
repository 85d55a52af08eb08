package snapshot

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type openConfig struct {
	busyTimeout int
	synchronous string
	mkdirAll    bool
}

func defaults() openConfig {
	return openConfig{
		busyTimeout: 10_000,
		synchronous: "NORMAL",
	}
}

// Option customises Open behaviour.
type Option func(*openConfig)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *openConfig) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *openConfig) { c.synchronous = mode } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *openConfig) { c.mkdirAll = true } }

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	emotion      TEXT NOT NULL,
	image        TEXT NOT NULL,
	descriptor   TEXT NOT NULL,
	ember_id     TEXT NOT NULL,
	glyph        TEXT NOT NULL,
	mode         TEXT NOT NULL,
	content_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_ember_id ON snapshots (ember_id);
CREATE INDEX IF NOT EXISTS snapshots_created_at ON snapshots (created_at);
`

func openDB(path string, cfg openConfig) (*sql.DB, error) {
	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open: %w", err)
	}

	// One writer keeps appends ordered; the log is small.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("snapshot: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: exec schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: ping: %w", err)
	}

	return db, nil
}
