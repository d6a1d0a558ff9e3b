package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlab/datescout/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndProcessedURLs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, store.Record{ID: "1", URL: "https://a.example", DateURL: "2010-06-10", DatedURL: "https://a.example/post"}))
	require.NoError(t, s.Append(ctx, store.Record{ID: "2", URL: "https://b.example", DateURL: "SCRAPER_DETECTED", DatedURL: "SCRAPER_DETECTED"}))

	seen, err := s.ProcessedURLs(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Contains(t, seen, "https://a.example")
	assert.Contains(t, seen, "https://b.example")
}

func TestEmptyStore(t *testing.T) {
	s := newTestStore(t)

	seen, err := s.ProcessedURLs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, store.Record{ID: "1", URL: "https://a.example", DateURL: "ERROR", DatedURL: "ERROR"}))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	seen, err := s.ProcessedURLs(ctx)
	require.NoError(t, err)
	assert.Contains(t, seen, "https://a.example")
}
