// Package store defines the resumable result store contract.
package store

import "context"

// Record is the immutable outcome row for one processed URL. DateURL holds
// the canonical date or a sentinel; DatedURL holds the resolved href or the
// same sentinel. Records are appended exactly once and never retracted.
type Record struct {
	ID       string
	URL      string
	DateURL  string
	DatedURL string
}

// Store persists records append-only. ProcessedURLs reports which input URLs
// already have a record so interrupted runs can resume without duplication.
type Store interface {
	Append(ctx context.Context, rec Record) error
	ProcessedURLs(ctx context.Context) (map[string]struct{}, error)
	Close() error
}
