// Package tsv implements the append-only tab-separated result store.
package tsv

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/seekerlab/datescout/internal/store"
)

const header = "id\turl\tdate_url\tdated_url\n"

var _ store.Store = (*Store)(nil)

// Store appends one tab-separated row per processed URL. The file is never
// rewritten in place: a crash mid-append loses at most the in-flight record.
type Store struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// New opens (or creates) the store at path. An empty or absent file gets the
// header row first.
func New(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result store %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat result store %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header to %s: %w", path, err)
		}
	}
	return &Store{file: f, path: path}, nil
}

// Append writes one row. Field values are flattened so they cannot break the
// tab/newline framing.
func (s *Store) Append(ctx context.Context, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	row := strings.Join([]string{
		flatten(rec.ID),
		flatten(rec.URL),
		flatten(rec.DateURL),
		flatten(rec.DatedURL),
	}, "\t") + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.WriteString(row); err != nil {
		return fmt.Errorf("append record for %s: %w", rec.URL, err)
	}
	return nil
}

// ProcessedURLs scans the file and returns every url already recorded.
func (s *Store) ProcessedURLs(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open result store %s: %w", s.path, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[1] == "" {
			continue
		}
		seen[fields[1]] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan result store %s: %w", s.path, err)
	}
	return seen, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close result store %s: %w", s.path, err)
	}
	return nil
}

func flatten(v string) string {
	v = strings.ReplaceAll(v, "\t", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(v, "\r", " ")
}
