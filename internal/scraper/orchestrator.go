package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seekerlab/datescout/internal/dates"
	"github.com/seekerlab/datescout/internal/store"
)

// Config holds the orchestrator's run-level knobs.
type Config struct {
	// BlockCooldown is the whole-session suspension applied when the search
	// engine flags the scraper. Detection is a session-wide event, not a
	// per-URL retry opportunity.
	BlockCooldown time.Duration
}

// Orchestrator drives the per-URL state machine: rotate, query, classify,
// canonicalize, record, pace. It owns the session for the run's duration.
type Orchestrator struct {
	cfg        Config
	session    Session
	store      store.Store
	classifier *Classifier
	rotator    Rotator
	pace       *Pace
	pauser     Pauser
	clock      Clock
	logger     *zap.Logger
}

// NewOrchestrator wires the run loop's collaborators.
func NewOrchestrator(
	cfg Config,
	session Session,
	st store.Store,
	classifier *Classifier,
	rotator Rotator,
	pace *Pace,
	pauser Pauser,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		session:    session,
		store:      st,
		classifier: classifier,
		rotator:    rotator,
		pace:       pace,
		pauser:     pauser,
		clock:      clock,
		logger:     logger,
	}
}

// Run processes every pending target exactly once, strictly sequentially.
// URLs already present in the store are skipped, making reruns after
// interruption idempotent at URL granularity. The only fatal per-loop error
// is a store append failure; everything else degrades to a sentinel record.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) error {
	done, err := o.store.ProcessedURLs(ctx)
	if err != nil {
		return fmt.Errorf("load processed urls: %w", err)
	}
	pending := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := done[t.URL]; ok {
			continue
		}
		pending = append(pending, t)
	}
	o.logger.Info("run starting",
		zap.Int("targets", len(targets)),
		zap.Int("pending", len(pending)),
		zap.Int("already_recorded", len(targets)-len(pending)))
	if len(pending) == 0 {
		return nil
	}

	if err := o.session.Open(ctx); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := o.session.Close(); cerr != nil {
			o.logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	if o.rotator != nil && o.rotator.Active() {
		if err := o.rotator.Rotate(ctx); err != nil {
			o.logger.Warn("initial proxy rotation failed", zap.Error(err))
		}
	}

	for idx, target := range pending {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled: %w", err)
		}
		if o.rotator != nil && o.rotator.Active() && o.rotator.ShouldRotate(idx) {
			if err := o.rotator.Rotate(ctx); err != nil {
				o.logger.Warn("proxy rotation failed", zap.Error(err))
			}
		}

		dateURL, datedURL, kind := o.process(ctx, target)

		// The funnel step: exactly one record and one pacing wait per
		// target, no matter which branch fired above.
		rec := store.Record{
			ID:       target.ID,
			URL:      target.URL,
			DateURL:  dateURL,
			DatedURL: datedURL,
		}
		if err := o.store.Append(ctx, rec); err != nil {
			return fmt.Errorf("record result for %s: %w", target.URL, err)
		}
		resultsTotal.WithLabelValues(string(kind)).Inc()
		o.logger.Info("recorded",
			zap.String("id", target.ID),
			zap.String("url", target.URL),
			zap.String("outcome", string(kind)),
			zap.String("date", dateURL))

		o.pace.Wait(ctx)
	}

	o.logger.Info("run finished", zap.Int("processed", len(pending)))
	return nil
}

// process resolves one target to its (date_url, dated_url) pair. It never
// returns an error: every failure maps to a sentinel pair.
func (o *Orchestrator) process(ctx context.Context, target Target) (string, string, OutcomeKind) {
	queriesTotal.Inc()
	start := o.clock.Now()
	if err := o.session.SubmitQuery(ctx, target.URL); err != nil {
		o.logger.Warn("query submission failed",
			zap.String("url", target.URL), zap.Error(err))
		return SentinelError, SentinelError, OutcomeError
	}
	queryDurationSeconds.Observe(o.clock.Now().Sub(start).Seconds())

	page, err := o.session.Snapshot(ctx)
	if err != nil {
		o.logger.Warn("page snapshot failed",
			zap.String("url", target.URL), zap.Error(err))
		return SentinelError, SentinelError, OutcomeError
	}

	outcome := o.classifier.Classify(page)
	switch outcome.Kind {
	case OutcomeBlocked:
		blockCooldownsTotal.Inc()
		o.logger.Warn("scraper detected, cooling down whole session",
			zap.String("url", target.URL),
			zap.Duration("cooldown", o.cfg.BlockCooldown))
		o.pauser.Pause(ctx, o.cfg.BlockCooldown)
		return SentinelDetected, SentinelDetected, OutcomeBlocked
	case OutcomeNoResults:
		return SentinelNoResults, SentinelNoResults, OutcomeNoResults
	case OutcomeError:
		o.logger.Warn("result extraction failed", zap.String("url", target.URL))
		return SentinelError, SentinelError, OutcomeError
	}

	raw := dates.Extract(outcome.SnippetText)
	if raw == "" {
		return SentinelNoDate, outcome.Href, OutcomeSuccess
	}
	return dates.Canonicalize(raw), outcome.Href, OutcomeSuccess
}
