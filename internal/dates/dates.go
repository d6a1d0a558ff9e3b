// Package dates mines and canonicalizes publication dates found in search
// result snippets.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// Pattern matches date-like substrings inside a result snippet, e.g.
// "Jun 10, 2010" or "by J Doe · 2010".
var Pattern = regexp.MustCompile(
	`(([A-Z][a-z]{2,} [0-9]{1,2},)|(by [A-Z-]* [A-Za-z\s-]* ·)) [0-9]{4}`)

var attribution = regexp.MustCompile(`by [A-Z-]* [A-Za-z\s-]* · `)

// layout pairs an input layout with the layout used to render a successful
// parse. A year-only match renders as the bare year: inventing a month and
// day the snippet never contained would look like real precision downstream.
type layout struct {
	in  string
	out string
}

var layouts = []layout{
	{in: "Jan 2, 2006", out: "2006-01-02"},
	{in: "January 2, 2006", out: "2006-01-02"},
	{in: "2006", out: "2006"},
}

// Extract returns the first date-like substring in text, or "" if none.
func Extract(text string) string {
	return Pattern.FindString(text)
}

// Canonicalize strips a leading authorship attribution ("by J Doe · ") and
// reformats the remainder as YYYY-MM-DD when it parses as a known date
// layout. Unparseable input is returned stripped and trimmed, unchanged
// otherwise; callers treat that as graceful degradation, not an error.
func Canonicalize(raw string) string {
	cleaned := strings.TrimSpace(attribution.ReplaceAllString(raw, ""))
	for _, l := range layouts {
		t, err := time.Parse(l.in, cleaned)
		if err != nil {
			continue
		}
		return t.Format(l.out)
	}
	return cleaned
}
