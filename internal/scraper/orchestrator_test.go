package scraper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekerlab/datescout/internal/store"
)

// fakeSession serves one canned page per submitted query.
type fakeSession struct {
	pages     map[string]Page
	submitErr map[string]error
	opened    bool
	closed    bool
	current   Page
	queries   []string
}

func (f *fakeSession) Open(context.Context) error { f.opened = true; return nil }
func (f *fakeSession) Close() error               { f.closed = true; return nil }

func (f *fakeSession) SubmitQuery(_ context.Context, text string) error {
	f.queries = append(f.queries, text)
	if err := f.submitErr[text]; err != nil {
		return err
	}
	f.current = f.pages[text]
	return nil
}

func (f *fakeSession) Snapshot(context.Context) (Page, error) {
	return f.current, nil
}

// memStore collects records in memory, optionally pre-seeded for resume
// tests.
type memStore struct {
	records   []store.Record
	seeded    map[string]struct{}
	appendErr error
}

func (m *memStore) Append(_ context.Context, rec store.Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) ProcessedURLs(context.Context) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	for u := range m.seeded {
		seen[u] = struct{}{}
	}
	for _, rec := range m.records {
		seen[rec.URL] = struct{}{}
	}
	return seen, nil
}

func (m *memStore) Close() error { return nil }

// recordingPauser captures every requested suspension instead of sleeping.
type recordingPauser struct {
	pauses []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	p.pauses = append(p.pauses, delay)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type countingRotator struct {
	rotations []int
	calls     int
}

func (r *countingRotator) Active() bool              { return true }
func (r *countingRotator) ShouldRotate(idx int) bool { return idx != 0 && idx%10 == 0 }
func (r *countingRotator) Rotate(context.Context) error {
	r.calls++
	return nil
}

func resultsPage(query, href, snippet string) Page {
	html := fmt.Sprintf(`<html><body><div id="topstuff"></div><div id="rso">
<div class="mnr-c"><div aria-label="About this Result"></div>
<a href=%q>result</a><div>%s</div></div></div></body></html>`, href, snippet)
	return Page{
		URL:   "https://www.google.com/search?q=" + query,
		Title: query + " - Google Search",
		HTML:  []byte(html),
	}
}

func noResultsPage(query string) Page {
	return Page{
		URL:   "https://www.google.com/search?q=" + query,
		Title: query + " - Google Search",
		HTML:  []byte(`<html><body><div id="topstuff">did not match any documents</div></body></html>`),
	}
}

func blockedPage() Page {
	return Page{
		URL:   "https://www.google.com/sorry/index",
		Title: "Sorry...",
		HTML:  []byte(`<html><body>unusual traffic</body></html>`),
	}
}

func newTestOrchestrator(sess Session, st store.Store, rot Rotator, pauser *recordingPauser, interval time.Duration) *Orchestrator {
	return NewOrchestrator(
		Config{BlockCooldown: 2 * time.Hour},
		sess,
		st,
		NewClassifier(),
		rot,
		NewPace(interval, pauser),
		pauser,
		&fakeClock{now: time.Unix(1700000000, 0)},
		zap.NewNop(),
	)
}

func TestRunRecordsEveryOutcome(t *testing.T) {
	sess := &fakeSession{
		pages: map[string]Page{
			"https://a.example": resultsPage("https://a.example", "https://a.example/post", "Jun 10, 2010 — post"),
			"https://b.example": noResultsPage("https://b.example"),
			"https://c.example": blockedPage(),
			"https://d.example": {URL: "https://www.google.com/search?q=d", Title: "d - Google Search", HTML: []byte("<html></html>")},
		},
		submitErr: map[string]error{"https://e.example": fmt.Errorf("net::ERR_TIMED_OUT")},
	}
	st := &memStore{}
	pauser := &recordingPauser{}
	orch := newTestOrchestrator(sess, st, nil, pauser, 180*time.Second)

	targets := []Target{
		{ID: "1", URL: "https://a.example"},
		{ID: "2", URL: "https://b.example"},
		{ID: "3", URL: "https://c.example"},
		{ID: "4", URL: "https://d.example"},
		{ID: "5", URL: "https://e.example"},
	}
	require.NoError(t, orch.Run(context.Background(), targets))

	require.Len(t, st.records, len(targets), "exactly one record per input URL")
	assert.Equal(t, store.Record{ID: "1", URL: "https://a.example", DateURL: "2010-06-10", DatedURL: "https://a.example/post"}, st.records[0])
	assert.Equal(t, store.Record{ID: "2", URL: "https://b.example", DateURL: "NO_RESULTS", DatedURL: "NO_RESULTS"}, st.records[1])
	assert.Equal(t, store.Record{ID: "3", URL: "https://c.example", DateURL: "SCRAPER_DETECTED", DatedURL: "SCRAPER_DETECTED"}, st.records[2])
	assert.Equal(t, store.Record{ID: "4", URL: "https://d.example", DateURL: "ERROR", DatedURL: "ERROR"}, st.records[3])
	assert.Equal(t, store.Record{ID: "5", URL: "https://e.example", DateURL: "ERROR", DatedURL: "ERROR"}, st.records[4])

	assert.True(t, sess.opened)
	assert.True(t, sess.closed, "session released on every exit path")
}

func TestRunBlockedCoolsDownWholeSession(t *testing.T) {
	sess := &fakeSession{pages: map[string]Page{"https://a.example": blockedPage()}}
	st := &memStore{}
	pauser := &recordingPauser{}
	orch := newTestOrchestrator(sess, st, nil, pauser, 180*time.Second)

	require.NoError(t, orch.Run(context.Background(), []Target{{ID: "1", URL: "https://a.example"}}))

	require.Len(t, st.records, 1)
	assert.Equal(t, "SCRAPER_DETECTED", st.records[0].DateURL)
	// Cooldown first, then the regular pacing wait.
	require.Len(t, pauser.pauses, 2)
	assert.Equal(t, 2*time.Hour, pauser.pauses[0])
	assert.Equal(t, 180*time.Second, pauser.pauses[1])
}

func TestRunPacesEveryTarget(t *testing.T) {
	sess := &fakeSession{pages: map[string]Page{
		"https://a.example": noResultsPage("https://a.example"),
		"https://b.example": noResultsPage("https://b.example"),
	}}
	st := &memStore{}
	pauser := &recordingPauser{}
	orch := newTestOrchestrator(sess, st, nil, pauser, 180*time.Second)

	targets := []Target{
		{ID: "1", URL: "https://a.example"},
		{ID: "2", URL: "https://b.example"},
	}
	require.NoError(t, orch.Run(context.Background(), targets))

	require.Len(t, pauser.pauses, 2)
	for _, d := range pauser.pauses {
		assert.Equal(t, 180*time.Second, d, "identical floor regardless of outcome")
	}
}

func TestRunSkipsAlreadyRecordedURLs(t *testing.T) {
	sess := &fakeSession{pages: map[string]Page{
		"https://b.example": noResultsPage("https://b.example"),
	}}
	st := &memStore{seeded: map[string]struct{}{"https://a.example": {}}}
	pauser := &recordingPauser{}
	orch := newTestOrchestrator(sess, st, nil, pauser, time.Second)

	targets := []Target{
		{ID: "1", URL: "https://a.example"},
		{ID: "2", URL: "https://b.example"},
	}
	require.NoError(t, orch.Run(context.Background(), targets))

	require.Len(t, st.records, 1)
	assert.Equal(t, "https://b.example", st.records[0].URL)
	assert.Equal(t, []string{"https://b.example"}, sess.queries, "recorded URLs are never re-queried")
}

func TestRunIdempotentOnRerun(t *testing.T) {
	pages := map[string]Page{
		"https://a.example": noResultsPage("https://a.example"),
		"https://b.example": noResultsPage("https://b.example"),
	}
	st := &memStore{}
	targets := []Target{
		{ID: "1", URL: "https://a.example"},
		{ID: "2", URL: "https://b.example"},
	}

	for i := 0; i < 2; i++ {
		sess := &fakeSession{pages: pages}
		orch := newTestOrchestrator(sess, st, nil, &recordingPauser{}, time.Second)
		require.NoError(t, orch.Run(context.Background(), targets))
	}

	require.Len(t, st.records, 2, "second run appends nothing")
	urls := map[string]int{}
	for _, rec := range st.records {
		urls[rec.URL]++
	}
	for u, n := range urls {
		assert.Equal(t, 1, n, "duplicate record for %s", u)
	}
}

func TestRunAllTargetsDoneSkipsSession(t *testing.T) {
	sess := &fakeSession{}
	st := &memStore{seeded: map[string]struct{}{"https://a.example": {}}}
	orch := newTestOrchestrator(sess, st, nil, &recordingPauser{}, time.Second)

	require.NoError(t, orch.Run(context.Background(), []Target{{ID: "1", URL: "https://a.example"}}))
	assert.False(t, sess.opened, "no browser needed when nothing is pending")
}

func TestRunRotationCadence(t *testing.T) {
	pages := make(map[string]Page)
	var targets []Target
	for i := 0; i < 21; i++ {
		u := fmt.Sprintf("https://site%02d.example", i)
		pages[u] = noResultsPage(u)
		targets = append(targets, Target{ID: fmt.Sprintf("%d", i), URL: u})
	}
	sess := &fakeSession{pages: pages}
	rot := &countingRotator{}
	orch := newTestOrchestrator(sess, &memStore{}, rot, &recordingPauser{}, time.Second)

	require.NoError(t, orch.Run(context.Background(), targets))
	// Once at session start, then at indexes 10 and 20.
	assert.Equal(t, 3, rot.calls)
}

func TestRunStoreAppendFailureIsFatal(t *testing.T) {
	sess := &fakeSession{pages: map[string]Page{
		"https://a.example": noResultsPage("https://a.example"),
	}}
	st := &memStore{appendErr: fmt.Errorf("disk full")}
	orch := newTestOrchestrator(sess, st, nil, &recordingPauser{}, time.Second)

	err := orch.Run(context.Background(), []Target{{ID: "1", URL: "https://a.example"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, sess.closed)
}

func TestNilRotatorIsInert(t *testing.T) {
	var r Rotator = (*inertRotator)(nil)
	assert.False(t, r.Active())
}

// inertRotator mirrors the nil-receiver contract of proxy.Rotator without
// importing it (the proxy package depends on scraper seams, not vice versa).
type inertRotator struct{}

func (r *inertRotator) Active() bool                 { return r != nil }
func (r *inertRotator) ShouldRotate(int) bool        { return r != nil }
func (r *inertRotator) Rotate(context.Context) error { return nil }
