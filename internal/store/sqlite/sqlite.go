// Package sqlite implements the result store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // database/sql driver, no cgo

	"github.com/seekerlab/datescout/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id         TEXT NOT NULL,
	url        TEXT NOT NULL,
	date_url   TEXT NOT NULL,
	dated_url  TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_url ON results(url);
`

var _ store.Store = (*Store)(nil)

// Store persists one row per processed URL in a local SQLite file. Rows are
// only ever inserted, matching the append-only contract of the TSV backend.
type Store struct {
	db *sql.DB
}

// New opens the database at path and ensures the schema exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	// A single sequential writer; more connections just invite lock errors.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts one record.
func (s *Store) Append(ctx context.Context, rec store.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, url, date_url, dated_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.DateURL, rec.DatedURL, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record for %s: %w", rec.URL, err)
	}
	return nil
}

// ProcessedURLs returns every url already recorded.
func (s *Store) ProcessedURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM results`)
	if err != nil {
		return nil, fmt.Errorf("query processed urls: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan processed url: %w", err)
		}
		seen[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed urls: %w", err)
	}
	return seen, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite store: %w", err)
	}
	return nil
}
