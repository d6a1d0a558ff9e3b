package scraper

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors addressing the search engine's results surface. The organic
// result marker deliberately excludes ads and widgets: only blocks carrying
// the "About this Result" affordance count.
const (
	blockedURLPrefix  = "https://www.google.com/sorry/"
	resultsTitleMark  = "Google Search"
	noResultsRegion   = "#topstuff"
	resultsContainer  = "#rso"
	organicBlockClass = "mnr-c"
	aboutMarker       = `div[aria-label="About this Result"]`
)

var nonLetters = regexp.MustCompile(`[^A-Za-z\s]+`)

// Classifier maps a rendered results page to exactly one outcome. It is
// total: any page shape, including malformed HTML, yields a verdict and
// never an error.
type Classifier struct {
	noResultsPhrases []string
}

// NewClassifier returns a classifier with the canonical no-results phrases.
func NewClassifier() *Classifier {
	return &Classifier{
		noResultsPhrases: []string{
			"no results found for",
			"did not match any documents",
		},
	}
}

// Classify inspects the page snapshot. Outcome priority: blocked, then no
// results, then success; anything that prevents extraction is OutcomeError.
func (c *Classifier) Classify(page Page) Outcome {
	if strings.HasPrefix(page.URL, blockedURLPrefix) || !strings.Contains(page.Title, resultsTitleMark) {
		return Outcome{Kind: OutcomeBlocked}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return Outcome{Kind: OutcomeError}
	}

	if c.nothingFound(doc) {
		return Outcome{Kind: OutcomeNoResults}
	}

	if doc.Find(resultsContainer).Length() == 0 {
		return Outcome{Kind: OutcomeError}
	}

	block := firstOrganicResult(doc)
	if block == nil {
		return Outcome{Kind: OutcomeError}
	}

	href, ok := block.Find("a[href]").First().Attr("href")
	if !ok {
		return Outcome{Kind: OutcomeError}
	}

	return Outcome{
		Kind:        OutcomeSuccess,
		SnippetText: block.Text(),
		Href:        absoluteHref(page.URL, href),
	}
}

// absoluteHref resolves a result link against the page it appeared on. The
// raw attribute may be relative (e.g. "/url?q=..."); the recorded href is
// always absolute. An unparseable input is returned as-is.
func absoluteHref(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (c *Classifier) nothingFound(doc *goquery.Document) bool {
	region := doc.Find(noResultsRegion)
	if region.Length() == 0 {
		return false
	}
	cleaned := cleanText(region.Text())
	for _, phrase := range c.noResultsPhrases {
		if strings.Contains(cleaned, phrase) {
			return true
		}
	}
	return false
}

// firstOrganicResult finds the first block with the organic-result class
// that carries the "About this Result" marker somewhere beneath it.
func firstOrganicResult(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("div." + organicBlockClass).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Find(aboutMarker).Length() == 0 {
			return true
		}
		found = sel
		return false
	})
	return found
}

func cleanText(text string) string {
	return nonLetters.ReplaceAllString(strings.ToLower(text), "")
}
