package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/trendscout/internal/blockcheck"
	"github.com/FranksOps/trendscout/internal/capture"
	"github.com/FranksOps/trendscout/internal/fingerprint"
	"github.com/FranksOps/trendscout/internal/metrics"
	"github.com/FranksOps/trendscout/pkg/httpclient"
	"github.com/FranksOps/trendscout/pkg/useragent"
	"github.com/google/uuid"
)

// maxBodyBytes caps how much of a response is buffered. Trends payloads are
// a few hundred kilobytes at most.
const maxBodyBytes = 8 << 20

// FetchConfig configures the Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	UserAgents   useragent.Source
	Fingerprint  fingerprint.Profile
	Proxy        *url.URL
	// AcceptLanguage is sent with every request, e.g. "en-US,en;q=0.9".
	AcceptLanguage string
	// RespectRobots checks robots.txt before each fetch.
	RespectRobots bool
	// InsecureSkipVerify is only meant for tests against httptest TLS servers.
	InsecureSkipVerify bool
	Detectors          []blockcheck.Detector
	Logger             *slog.Logger
}

// Fetcher performs single GET requests against trends endpoints.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	robots *RobotsAuditor
	logger *slog.Logger
}

// NewFetcher initializes a new Fetcher with the given configuration.
// A single client is held across requests so cookies persist for the
// lifetime of the Fetcher.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpclient.DefaultTimeout
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.Fixed(useragent.Trends)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "en-US,en;q=0.9"
	}
	if cfg.Detectors == nil {
		cfg.Detectors = blockcheck.DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              cfg.Proxy,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: client: %w", err)
	}

	f := &Fetcher{
		config: cfg,
		client: client,
		logger: cfg.Logger,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsAuditor(f, cfg.Logger)
	}
	return f, nil
}

// Fetch executes a GET request to targetURL and captures the response.
// endpoint is a short label used for logs and metrics.
//
// Non-200 statuses are not errors here; callers inspect the Capture. An
// error is returned only when no response was obtained.
func (f *Fetcher) Fetch(ctx context.Context, endpoint, targetURL string) (*capture.Capture, error) {
	ua := f.config.UserAgents.Next()
	if f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, targetURL, ua)
		if err != nil {
			return nil, fmt.Errorf("scraper: robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, targetURL)
		}
	}

	c, err := f.get(ctx, endpoint, targetURL, ua)
	if err != nil {
		metrics.RecordError(endpoint)
		f.logger.Debug("request failed", "endpoint", endpoint, "url", targetURL, "err", err)
		return nil, err
	}

	blockcheck.Analyze(c, f.config.Detectors)
	metrics.RecordCapture(c)

	f.logger.Debug("fetched",
		"endpoint", endpoint,
		"status", c.StatusCode,
		"bytes", len(c.Body),
		"duration", c.Duration,
		"blocked", c.BlockedBy,
	)
	return c, nil
}

func (f *Fetcher) get(ctx context.Context, endpoint, targetURL, userAgent string) (*capture.Capture, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", f.config.AcceptLanguage)

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scraper: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("scraper: read %s body: %w", endpoint, err)
	}

	return &capture.Capture{
		ID:         uuid.New().String(),
		Endpoint:   endpoint,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
		CreatedAt:  start.UTC(),
	}, nil
}

// IsTimeout reports whether err came from a deadline rather than a refused
// or reset connection.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
