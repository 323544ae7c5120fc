package blockcheck

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/FranksOps/trendscout/internal/capture"
)

// Detector examines a capture to determine whether Google (or a fronting
// CDN) challenged or throttled the request instead of answering it.
type Detector func(c *capture.Capture) (detected bool, source string)

// DefaultDetectors returns the detectors applied to every trends response.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogleSorry,
		detectRateLimit,
		detectRecaptcha,
		detectCloudflare,
	}
}

// Analyze runs the capture through the detectors, records the first hit on
// the capture and reports whether any detector fired.
func Analyze(c *capture.Capture, detectors []Detector) bool {
	if c == nil {
		return false
	}
	for _, d := range detectors {
		if detected, source := d(c); detected {
			c.Blocked = true
			c.BlockedBy = source
			return true
		}
	}
	c.Blocked = false
	c.BlockedBy = ""
	return false
}

// detectGoogleSorry matches the "unusual traffic" interstitial served from
// /sorry/index, either as a redirect target or inline. Body markers only
// count on HTML or non-200 answers; JSON payloads may quote them.
func detectGoogleSorry(c *capture.Capture) (bool, string) {
	if strings.Contains(c.URL, "/sorry/") {
		return true, "Google"
	}
	if loc := c.Header.Get("Location"); strings.Contains(loc, "/sorry/") {
		return true, "Google"
	}
	if c.StatusCode == http.StatusOK && !looksLikeHTML(c) {
		return false, ""
	}
	if bytes.Contains(c.Body, []byte("Our systems have detected unusual traffic")) ||
		bytes.Contains(c.Body, []byte("/sorry/index")) {
		return true, "Google"
	}
	return false, ""
}

// detectRateLimit treats 429 as a block; Google uses it for quota exhaustion
// on the trends API.
func detectRateLimit(c *capture.Capture) (bool, string) {
	if c.StatusCode == http.StatusTooManyRequests {
		return true, "RateLimit"
	}
	return false, ""
}

func detectRecaptcha(c *capture.Capture) (bool, string) {
	if c.StatusCode == http.StatusOK && !looksLikeHTML(c) {
		return false, ""
	}
	if bytes.Contains(c.Body, []byte("g-recaptcha")) ||
		bytes.Contains(c.Body, []byte("www.google.com/recaptcha/api.js")) {
		return true, "reCAPTCHA"
	}
	return false, ""
}

func detectCloudflare(c *capture.Capture) (bool, string) {
	if c.StatusCode != http.StatusForbidden && c.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(c.Header.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bytes.Contains(c.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(c.Body, []byte("cf-turnstile")) {
		return true, "Cloudflare"
	}
	return false, ""
}

func looksLikeHTML(c *capture.Capture) bool {
	return strings.Contains(strings.ToLower(c.Header.Get("Content-Type")), "text/html")
}
