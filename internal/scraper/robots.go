package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned by Fetch when robots.txt forbids the URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// RobotsAuditor fetches, caches and evaluates robots.txt per host.
type RobotsAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsAuditor creates a new instance.
func NewRobotsAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed determines if targetURL may be fetched by userAgent. robots.txt
// is requested with the same User-Agent. A robots.txt that cannot be fetched
// or parsed allows everything.
func (r *RobotsAuditor) IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := r.load(ctx, u.Scheme+"://"+u.Host, userAgent)
	if data == nil {
		return true, nil
	}
	return data.TestAgent(u.Path, userAgent), nil
}

func (r *RobotsAuditor) load(ctx context.Context, host, userAgent string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[host]; ok {
		return data
	}

	// cache misses too, so a broken robots.txt is fetched once per run
	r.cache[host] = nil

	c, err := r.fetcher.get(ctx, "robots", host+"/robots.txt", userAgent)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(c.StatusCode, c.Body)
	if err != nil {
		r.logger.Debug("robots.txt parse failed, defaulting to allow", "host", host, "err", err)
		return nil
	}

	r.cache[host] = data
	return data
}
