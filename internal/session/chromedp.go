// Package session contains the chromedp-backed search session controller.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seekerlab/datescout/internal/proxy"
	"github.com/seekerlab/datescout/internal/scraper"
)

// Selectors on the search engine's home and results surfaces.
const (
	searchBoxSelector = `[aria-label="Search"]`
	resultsReadyMark  = `#main`
	consentButton     = `//button[contains(., "I agree")]`
)

// Config controls the browser session.
type Config struct {
	// HomeURL is the search home restricted to the publication-date range
	// filter. The range bounds are part of the URL and fixed for a run.
	HomeURL string
	// Headless toggles headless operation.
	Headless bool
	// NavTimeout bounds every navigation/selector wait.
	NavTimeout time.Duration
	// ConsentTimeout bounds the best-effort cookie-consent dismissal.
	ConsentTimeout time.Duration
	// KeyDelay is the per-character typing cadence; queries are typed, not
	// pasted, to keep a human-like input stream.
	KeyDelay time.Duration
	// Proxy optionally binds an authenticated proxy at launch.
	Proxy *proxy.Config
}

var _ scraper.Session = (*Chromedp)(nil)

// Chromedp owns one long-lived headless Chrome process, emulating a single
// fixed mobile device profile, and reuses one tab for every query.
type Chromedp struct {
	cfg           Config
	logger        *zap.Logger
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	keys          *rate.Limiter
}

// New prepares the exec allocator. The browser process itself starts in Open.
func New(cfg Config, logger *zap.Logger) (*Chromedp, error) {
	if cfg.HomeURL == "" {
		return nil, fmt.Errorf("session home URL must be set")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 5 * time.Minute
	}
	if cfg.KeyDelay <= 0 {
		cfg.KeyDelay = 50 * time.Millisecond
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("window-position", "0,0"),
		chromedp.Flag("start-fullscreen", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.Proxy != nil {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy.Server()))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Chromedp{
		cfg:         cfg,
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		keys:        rate.NewLimiter(rate.Every(cfg.KeyDelay), 1),
	}, nil
}

// Open launches the browser, installs the stealth script, emulates the
// mobile device profile, navigates to the filtered search home, and
// dismisses the consent prompt if one appears.
func (s *Chromedp) Open(ctx context.Context) error {
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	if s.cfg.Proxy != nil && s.cfg.Proxy.User != "" {
		s.handleProxyAuth()
	}

	actions := []chromedp.Action{}
	if s.cfg.Proxy != nil && s.cfg.Proxy.User != "" {
		actions = append(actions, fetch.Enable().WithHandleAuthRequests(true))
	}
	actions = append(actions,
		installStealth(),
		chromedp.Emulate(device.Nexus10),
		chromedp.Navigate(s.cfg.HomeURL),
	)

	if err := s.run(ctx, actions...); err != nil {
		s.Close()
		return fmt.Errorf("open session: %w", err)
	}

	s.dismissConsent(ctx)
	return nil
}

// SubmitQuery clears the search field, types the query, submits it, and
// waits for the results container. The field retains the previous query, so
// select-all plus Delete precedes typing.
func (s *Chromedp) SubmitQuery(ctx context.Context, text string) error {
	err := s.run(ctx,
		chromedp.Click(searchBoxSelector, chromedp.ByQuery),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Delete),
		s.typeQuery(text),
		chromedp.Sleep(time.Second),
		chromedp.KeyEvent(kb.Enter),
		chromedp.Sleep(2*time.Second),
		chromedp.WaitReady(resultsReadyMark, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit query: %w", err)
	}
	return nil
}

// Snapshot captures the current page state for classification.
func (s *Chromedp) Snapshot(ctx context.Context) (scraper.Page, error) {
	var (
		loc   string
		title string
		html  string
	)
	err := s.run(ctx,
		chromedp.Location(&loc),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return scraper.Page{}, fmt.Errorf("snapshot page: %w", err)
	}
	return scraper.Page{URL: loc, Title: title, HTML: []byte(html)}, nil
}

// Close releases the tab, the browser process, and the allocator. Safe to
// call on every exit path, including before Open.
func (s *Chromedp) Close() error {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	s.allocCancel()
	return nil
}

// run executes actions on the session tab, bounded by the navigation
// timeout and the caller's context.
func (s *Chromedp) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.browserCtx == nil {
		return fmt.Errorf("session not open")
	}
	opCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	return chromedp.Run(opCtx, actions...)
}

// typeQuery sends the query one rune at a time at the configured cadence.
func (s *Chromedp) typeQuery(text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, r := range text {
			if err := s.keys.Wait(ctx); err != nil {
				return fmt.Errorf("typing cadence: %w", err)
			}
			if err := chromedp.SendKeys(searchBoxSelector, string(r), chromedp.ByQuery).Do(ctx); err != nil {
				return fmt.Errorf("type rune: %w", err)
			}
		}
		return nil
	})
}

// dismissConsent clicks the consent button if present. Best effort: the
// prompt only appears on fresh profiles in some regions, so failure is
// swallowed.
func (s *Chromedp) dismissConsent(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.ConsentTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	if err := chromedp.Run(opCtx, chromedp.Click(consentButton, chromedp.BySearch)); err != nil {
		s.logger.Debug("no consent prompt dismissed", zap.Error(err))
	}
}

// handleProxyAuth answers the proxy's authentication challenge. With auth
// handling enabled every request pauses until continued, so both event
// types are serviced.
func (s *Chromedp) handleProxyAuth() {
	browserCtx := s.browserCtx
	user, password := s.cfg.Proxy.User, s.cfg.Proxy.Password
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *fetch.EventRequestPaused:
			go func() {
				c := chromedp.FromContext(browserCtx)
				execCtx := cdp.WithExecutor(browserCtx, c.Target)
				if err := fetch.ContinueRequest(ev.RequestID).Do(execCtx); err != nil {
					s.logger.Debug("continue request failed", zap.Error(err))
				}
			}()
		case *fetch.EventAuthRequired:
			if ev.AuthChallenge.Source != fetch.AuthChallengeSourceProxy {
				return
			}
			go func() {
				c := chromedp.FromContext(browserCtx)
				execCtx := cdp.WithExecutor(browserCtx, c.Target)
				resp := &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: user,
					Password: password,
				}
				if err := fetch.ContinueWithAuth(ev.RequestID, resp).Do(execCtx); err != nil {
					s.logger.Warn("proxy auth failed", zap.Error(err))
				}
			}()
		}
	})
}

func installStealth() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("install stealth script: %w", err)
		}
		return nil
	})
}

// forwardCancel propagates the caller's cancellation into a chromedp
// operation context without tying the tab's lifetime to it.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
