// Package store persists recording history in an SQLite database so the
// daemon's HTTP API can serve it across restarts. Failures here never abort
// a capture; callers log and move on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	id         TEXT PRIMARY KEY,
	satellite  TEXT NOT NULL,
	freq_mhz   REAL NOT NULL,
	started    INTEGER NOT NULL,
	ended      INTEGER NOT NULL,
	frames     INTEGER NOT NULL,
	path       TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS recordings_started ON recordings(started DESC);
`

// Recording is one finished (or failed) capture job.
type Recording struct {
	ID        string    `json:"id"`
	Satellite string    `json:"satellite"`
	FreqMHz   float64   `json:"freq_mhz"`
	Started   time.Time `json:"started"`
	Ended     time.Time `json:"ended"`
	Frames    int64     `json:"frames"`
	Path      string    `json:"path"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Store wraps the recordings database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Insert records a finished job.
func (s *Store) Insert(ctx context.Context, r Recording) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (id, satellite, freq_mhz, started, ended, frames, path, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Satellite, r.FreqMHz, r.Started.Unix(), r.Ended.Unix(), r.Frames, r.Path, r.Status, r.Error)
	if err != nil {
		return fmt.Errorf("insert recording %s: %w", r.ID, err)
	}
	return nil
}

// List returns the most recent recordings, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Recording, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, satellite, freq_mhz, started, ended, frames, path, status, error
		 FROM recordings ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var r Recording
		var started, ended int64
		if err := rows.Scan(&r.ID, &r.Satellite, &r.FreqMHz, &started, &ended, &r.Frames, &r.Path, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		r.Started = time.Unix(started, 0).UTC()
		r.Ended = time.Unix(ended, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
