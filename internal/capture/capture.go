// Package capture holds the record of a single HTTP exchange with a trends
// endpoint. It is shared by the fetcher, the block detectors and metrics.
package capture

import (
	"net/http"
	"time"
)

// Capture is the outcome of one GET against a trends endpoint.
type Capture struct {
	ID         string
	Endpoint   string // logical endpoint name, e.g. "hottrends"
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Blocked    bool
	BlockedBy  string // e.g. "Google", "reCAPTCHA", "RateLimit"
	CreatedAt  time.Time
}

// OK reports whether the endpoint answered 200 without a challenge page.
func (c *Capture) OK() bool {
	return c != nil && c.StatusCode == http.StatusOK && !c.Blocked
}
