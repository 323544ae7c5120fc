// Package google fetches the realtime hottrends list straight from the
// Google Trends endpoint with a single GET.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/FranksOps/trendscout/internal/trends"
)

// DefaultHotURL is the realtime trends endpoint.
const DefaultHotURL = "https://trends.google.com/trends/api/hottrends"

const endpointHot = "hottrends"

// Hot reads the hottrends endpoint.
type Hot struct {
	fetcher trends.Fetcher
	baseURL string
	logger  *slog.Logger
}

var _ trends.HotTrendsSource = (*Hot)(nil)

// NewHot returns a Hot source. An empty baseURL selects DefaultHotURL.
func NewHot(f trends.Fetcher, baseURL string, logger *slog.Logger) *Hot {
	if baseURL == "" {
		baseURL = DefaultHotURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hot{fetcher: f, baseURL: baseURL, logger: logger}
}

// HotTrends fetches and parses the realtime list for geo in language hl.
func (h *Hot) HotTrends(ctx context.Context, geo, hl string) ([]trends.Trend, error) {
	target, err := h.url(geo, hl)
	if err != nil {
		return nil, err
	}

	c, err := h.fetcher.Fetch(ctx, endpointHot, target)
	if err != nil {
		return nil, fmt.Errorf("hottrends: %w", err)
	}
	if err := trends.Check(c); err != nil {
		h.logger.Warn("hottrends rejected", "status", c.StatusCode, "blocked_by", c.BlockedBy)
		return nil, err
	}

	items, err := trends.ParseHotTrends(c.Body)
	if err != nil {
		return nil, fmt.Errorf("hottrends: %w", err)
	}
	h.logger.Debug("hottrends parsed", "geo", geo, "count", len(items))
	return items, nil
}

func (h *Hot) url(geo, hl string) (string, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return "", fmt.Errorf("hottrends: invalid base url %q: %w", h.baseURL, err)
	}
	q := u.Query()
	q.Set("geo", geo)
	q.Set("hl", hl)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
