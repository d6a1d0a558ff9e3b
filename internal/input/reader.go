// Package input reads the url_id/url rows that feed a run.
package input

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/seekerlab/datescout/internal/scraper"
)

// ReadTargets parses a tab-separated file of url_id<TAB>url rows. A leading
// header line is recognized and skipped. Uniqueness of urls is the caller's
// concern; rows are returned in file order.
func ReadTargets(path string) ([]scraper.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	var targets []scraper.Target
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if line == 1 && isHeader(fields) {
			continue
		}
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("input %s line %d: want url_id<TAB>url, got %q", path, line, text)
		}
		targets = append(targets, scraper.Target{ID: fields[0], URL: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return targets, nil
}

func isHeader(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(fields[0]))
	second := strings.ToLower(strings.TrimSpace(fields[1]))
	return (first == "url_id" || first == "id") && second == "url"
}
