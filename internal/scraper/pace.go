package scraper

import (
	"context"
	"time"
)

// Pace enforces the fixed suspension after every processed URL required to
// stay within the search engine's terms of use. It is a hard floor on
// request cadence, not a backoff: the same interval applies on every
// outcome.
type Pace struct {
	interval time.Duration
	pauser   Pauser
}

// NewPace returns a Pace suspending for interval on each Wait.
func NewPace(interval time.Duration, pauser Pauser) *Pace {
	return &Pace{interval: interval, pauser: pauser}
}

// Wait suspends for the configured interval, honoring ctx cancellation.
func (p *Pace) Wait(ctx context.Context) {
	p.pauser.Pause(ctx, p.interval)
}

// Interval reports the configured floor.
func (p *Pace) Interval() time.Duration {
	return p.interval
}
