// Package explore is the high level trends client: it keeps a session
// cookie, lists the daily trending searches and walks the explore widgets
// to collect related queries for a set of keywords.
package explore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/FranksOps/trendscout/internal/trends"
)

// Defaults mirror what the trends web UI sends for an English US session.
const (
	DefaultBaseURL   = "https://trends.google.com"
	DefaultHL        = "en-US"
	DefaultTZ        = 360
	DefaultTimeframe = "today 5-y"

	// MaxKeywords is the most terms Google accepts in one comparison.
	MaxKeywords = 5
)

var (
	ErrNoKeywords       = errors.New("explore: at least one keyword is required")
	ErrTooManyKeywords  = fmt.Errorf("explore: at most %d keywords per request", MaxKeywords)
	errNoRelatedWidgets = errors.New("explore: response has no related queries widget")
)

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	BaseURL   string
	HL        string
	TZ        *int
	Timeframe string
	Logger    *slog.Logger
}

// Client talks to the explore and dailytrends endpoints. The fetcher should
// keep cookies so the NID cookie from the bootstrap request is replayed.
type Client struct {
	fetcher   trends.Fetcher
	base      string
	hl        string
	tz        string
	timeframe string
	logger    *slog.Logger

	bootstrap sync.Once
}

var _ trends.Client = (*Client)(nil)

// New returns a Client using f for every request.
func New(f trends.Fetcher, opts Options) *Client {
	c := &Client{
		fetcher:   f,
		base:      strings.TrimRight(opts.BaseURL, "/"),
		hl:        opts.HL,
		tz:        strconv.Itoa(DefaultTZ),
		timeframe: opts.Timeframe,
		logger:    opts.Logger,
	}
	if c.base == "" {
		c.base = DefaultBaseURL
	}
	if c.hl == "" {
		c.hl = DefaultHL
	}
	if opts.TZ != nil {
		c.tz = strconv.Itoa(*opts.TZ)
	}
	if c.timeframe == "" {
		c.timeframe = DefaultTimeframe
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// startSession requests the trends home page once so Google sets the NID
// cookie. Failures only lower the odds of the following calls succeeding,
// so they are logged and ignored.
func (c *Client) startSession(ctx context.Context, geo string) {
	c.bootstrap.Do(func() {
		target := c.base + "/?" + url.Values{"geo": {geo}}.Encode()
		cp, err := c.fetcher.Fetch(ctx, "session", target)
		if err != nil {
			c.logger.Warn("session bootstrap failed", "err", err)
			return
		}
		if !cp.OK() {
			c.logger.Warn("session bootstrap rejected", "status", cp.StatusCode, "blocked_by", cp.BlockedBy)
		}
	})
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	q.Set("hl", c.hl)
	q.Set("tz", c.tz)
	target := c.base + path + "?" + q.Encode()

	cp, err := c.fetcher.Fetch(ctx, endpoint, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if err := trends.Check(cp); err != nil {
		c.logger.Warn("request rejected", "endpoint", endpoint, "status", cp.StatusCode, "blocked_by", cp.BlockedBy)
		return nil, err
	}
	return cp.Body, nil
}

// TrendingSearches returns the daily trending searches for geo, most recent
// day first.
func (c *Client) TrendingSearches(ctx context.Context, geo string) ([]trends.Trend, error) {
	c.startSession(ctx, geo)

	body, err := c.get(ctx, "dailytrends", "/trends/api/dailytrends", url.Values{
		"geo": {geo},
		"ns":  {"15"},
	})
	if err != nil {
		return nil, err
	}
	items, err := trends.ParseDailyTrends(body)
	if err != nil {
		return nil, fmt.Errorf("dailytrends: %w", err)
	}
	c.logger.Debug("trending searches parsed", "geo", geo, "count", len(items))
	return items, nil
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

type explorePayload struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

// RelatedQueries compares keywords over the configured timeframe and
// returns the top and rising related queries for each, in input order.
// Widgets are fetched one after another.
func (c *Client) RelatedQueries(ctx context.Context, keywords []string, geo string) ([]trends.RelatedQueries, error) {
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	if len(keywords) > MaxKeywords {
		return nil, ErrTooManyKeywords
	}
	c.startSession(ctx, geo)

	widgets, err := c.explore(ctx, keywords, geo)
	if err != nil {
		return nil, err
	}

	byKeyword := make(map[string]trends.RelatedQueries, len(keywords))
	n := 0
	for _, w := range widgets {
		if !w.IsRelatedQueries() {
			continue
		}
		kw := w.Keyword
		if kw == "" && n < len(keywords) {
			kw = keywords[n]
		}
		n++

		body, err := c.get(ctx, "relatedsearches", "/trends/api/widgetdata/relatedsearches", url.Values{
			"req":   {string(w.Request)},
			"token": {w.Token},
		})
		if err != nil {
			return nil, err
		}
		rq, err := trends.ParseRelatedSearches(kw, body)
		if err != nil {
			return nil, fmt.Errorf("relatedsearches %q: %w", kw, err)
		}
		byKeyword[kw] = rq
	}
	if n == 0 {
		return nil, errNoRelatedWidgets
	}

	out := make([]trends.RelatedQueries, 0, len(keywords))
	for _, kw := range keywords {
		rq, ok := byKeyword[kw]
		if !ok {
			rq = trends.RelatedQueries{Keyword: kw}
		}
		out = append(out, rq)
	}
	return out, nil
}

func (c *Client) explore(ctx context.Context, keywords []string, geo string) ([]trends.Widget, error) {
	payload := explorePayload{ComparisonItem: make([]comparisonItem, 0, len(keywords))}
	for _, kw := range keywords {
		payload.ComparisonItem = append(payload.ComparisonItem, comparisonItem{
			Keyword: kw,
			Time:    c.timeframe,
			Geo:     geo,
		})
	}
	req, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("explore: encode request: %w", err)
	}

	body, err := c.get(ctx, "explore", "/trends/api/explore", url.Values{"req": {string(req)}})
	if err != nil {
		return nil, err
	}
	widgets, err := trends.ParseExplore(body)
	if err != nil {
		return nil, fmt.Errorf("explore: %w", err)
	}
	return widgets, nil
}
