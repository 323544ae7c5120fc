// Package trends defines the data returned by the Google Trends endpoints,
// the parsers for their JSON payloads and the interfaces the report layer
// consumes. The payloads are undocumented, so every parser is lenient about
// missing fields and strict only about the JSON itself.
package trends

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/FranksOps/trendscout/internal/capture"
)

// MaxItems is the number of entries any report prints per list.
const MaxItems = 10

// Placeholder is printed for a trend whose title is missing.
const Placeholder = "N/A"

var (
	// ErrBlocked marks a 200 response that was an anti-bot challenge page
	// rather than trends data.
	ErrBlocked = errors.New("request blocked by google")
	// ErrMalformed marks a body that is not the JSON shape expected.
	ErrMalformed = errors.New("malformed trends payload")
)

// StatusError is returned when an endpoint answers with a non-200 status.
// BlockedBy names the detector that recognised the answer as a challenge
// or throttling page, if any.
type StatusError struct {
	Code      int
	URL       string
	BlockedBy string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Trend is one trending search.
type Trend struct {
	Title          string    `json:"title"`
	Traffic        string    `json:"traffic,omitempty"`
	Articles       []Article `json:"articles,omitempty"`
	RelatedQueries []string  `json:"related_queries,omitempty"`
}

// Source returns the publisher of the first related article, if any.
func (t Trend) Source() (string, bool) {
	if len(t.Articles) == 0 {
		return "", false
	}
	return t.Articles[0].Source, true
}

// Article is a news story Google attaches to a trend.
type Article struct {
	Title   string `json:"title,omitempty"`
	Source  string `json:"source"`
	URL     string `json:"url,omitempty"`
	TimeAgo string `json:"time_ago,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// RankedQuery is a row of a related-queries list. For rising queries Value
// is the percentage increase; for top queries it is relative interest.
type RankedQuery struct {
	Query          string `json:"query"`
	Value          int    `json:"value"`
	FormattedValue string `json:"formatted_value,omitempty"`
	Link           string `json:"link,omitempty"`
}

// RelatedQueries groups the top and rising queries for one keyword.
type RelatedQueries struct {
	Keyword string        `json:"keyword"`
	Top     []RankedQuery `json:"top"`
	Rising  []RankedQuery `json:"rising"`
}

// Fetcher performs one GET against a trends endpoint and captures the
// response. *scraper.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint, targetURL string) (*capture.Capture, error)
}

// HotTrendsSource returns the realtime trending list for a region.
type HotTrendsSource interface {
	HotTrends(ctx context.Context, geo, hl string) ([]Trend, error)
}

// Client is the high level scraping client: daily trending searches and
// related queries for caller supplied keywords.
type Client interface {
	TrendingSearches(ctx context.Context, geo string) ([]Trend, error)
	RelatedQueries(ctx context.Context, keywords []string, geo string) ([]RelatedQueries, error)
}

// Top returns at most n leading items. It never returns more than n
// entries and returns an empty slice for n <= 0.
func Top[T any](items []T, n int) []T {
	if n <= 0 {
		return items[:0:0]
	}
	if len(items) > n {
		return items[:n:n]
	}
	return items
}

// Check converts a capture into the error callers report: *StatusError for
// any non-200 answer, ErrBlocked for a challenge page served with a 200.
func Check(c *capture.Capture) error {
	if c.StatusCode != http.StatusOK {
		return &StatusError{Code: c.StatusCode, URL: c.URL, BlockedBy: c.BlockedBy}
	}
	if c.Blocked {
		return fmt.Errorf("%w (%s)", ErrBlocked, c.BlockedBy)
	}
	return nil
}
