// Package scraper defines core types shared across subsystems and implements
// the per-URL query orchestration.
package scraper

// Target is one input row: an opaque identifier plus the URL whose
// publication date should be resolved.
type Target struct {
	ID  string
	URL string
}

// Page is a snapshot of the session's current rendered page.
type Page struct {
	URL   string
	Title string
	HTML  []byte
}

// Sentinel values recorded in place of a real date/href when normal
// extraction is impossible. They are first-class outcomes, not errors: a run
// always ends with exactly one record per input URL.
const (
	SentinelNoDate    = "NO_DATE_DETECTED"
	SentinelNoResults = "NO_RESULTS"
	SentinelDetected  = "SCRAPER_DETECTED"
	SentinelError     = "ERROR"
)

// OutcomeKind classifies what the results page turned out to be.
type OutcomeKind string

// Classifier outcomes, in priority order.
const (
	OutcomeBlocked   OutcomeKind = "blocked"
	OutcomeNoResults OutcomeKind = "no_results"
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is the classifier verdict for one results page. SnippetText and
// Href are populated only on success.
type Outcome struct {
	Kind        OutcomeKind
	SnippetText string
	Href        string
}
