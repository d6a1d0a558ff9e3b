package scraper

import (
	"context"
	"time"
)

// Session is the narrow seam over the live automated-browser session. One
// session spans the whole run and is reused across all queries; it is owned
// exclusively by the orchestrator.
type Session interface {
	// Open launches the browser and lands on the search engine's home
	// surface with the publication-date range filter applied.
	Open(ctx context.Context) error
	// SubmitQuery clears any previous query, types text, submits, and waits
	// for a stable results state.
	SubmitQuery(ctx context.Context, text string) error
	// Snapshot returns the current page's URL, title, and rendered HTML.
	Snapshot(ctx context.Context) (Page, error)
	Close() error
}

// Rotator cycles the proxy's egress identity. Implementations must be
// nil-receiver safe so an absent proxy configuration disables rotation
// without branching at every call site.
type Rotator interface {
	Active() bool
	ShouldRotate(idx int) bool
	Rotate(ctx context.Context) error
}

// Pauser abstracts fixed-duration suspensions so tests can observe cooldowns
// and pacing without real wall-clock sleeps.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
