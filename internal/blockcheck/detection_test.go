package blockcheck

import (
	"net/http"
	"testing"

	"github.com/FranksOps/trendscout/internal/capture"
)

func TestDetectGoogleSorry(t *testing.T) {
	c := &capture.Capture{
		URL:        "https://trends.google.com/trends/api/hottrends",
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`)]}', {"trends":[]}`),
	}
	if detected, _ := detectGoogleSorry(c); detected {
		t.Errorf("expected plain JSON response not to be detected")
	}

	// JSON quoting the sorry page in an article URL is still data
	c = &capture.Capture{
		URL:        "https://trends.google.com/trends/api/hottrends",
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"application/json; charset=UTF-8"}},
		Body:       []byte(`)]}', {"trends":[{"title":"Privacy","relatedArticles":[{"url":"https://example.com/why-google-shows/sorry/index-pages"}]}]}`),
	}
	if detected, _ := detectGoogleSorry(c); detected {
		t.Errorf("expected JSON body quoting /sorry/index not to be detected")
	}

	c = &capture.Capture{
		StatusCode: 503,
		Header:     http.Header{},
		Body:       []byte("see /sorry/index"),
	}
	if detected, _ := detectGoogleSorry(c); !detected {
		t.Errorf("expected non-200 body marker to be detected")
	}

	c = &capture.Capture{
		URL:        "https://www.google.com/sorry/index?continue=x",
		StatusCode: 429,
		Header:     http.Header{},
	}
	if detected, src := detectGoogleSorry(c); !detected || src != "Google" {
		t.Errorf("expected Google detection by URL")
	}

	c = &capture.Capture{
		URL:        "https://trends.google.com/",
		StatusCode: 302,
		Header:     http.Header{"Location": {"https://www.google.com/sorry/index"}},
	}
	if detected, src := detectGoogleSorry(c); !detected || src != "Google" {
		t.Errorf("expected Google detection by Location header")
	}

	c = &capture.Capture{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"text/html"}},
		Body:       []byte("<p>Our systems have detected unusual traffic from your computer network.</p>"),
	}
	if detected, src := detectGoogleSorry(c); !detected || src != "Google" {
		t.Errorf("expected Google detection by body")
	}
}

func TestDetectRateLimit(t *testing.T) {
	if detected, _ := detectRateLimit(&capture.Capture{StatusCode: 200}); detected {
		t.Errorf("expected 200 not to be rate limited")
	}
	if detected, src := detectRateLimit(&capture.Capture{StatusCode: 429}); !detected || src != "RateLimit" {
		t.Errorf("expected 429 to be detected")
	}
}

func TestDetectRecaptcha(t *testing.T) {
	// JSON payloads mentioning the marker in a trend title are not challenges.
	c := &capture.Capture{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"trends":[{"title":"g-recaptcha"}]}`),
	}
	if detected, _ := detectRecaptcha(c); detected {
		t.Errorf("expected JSON body not to be detected")
	}

	c = &capture.Capture{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"text/html; charset=UTF-8"}},
		Body:       []byte(`<div class="g-recaptcha" data-sitekey="x"></div>`),
	}
	if detected, src := detectRecaptcha(c); !detected || src != "reCAPTCHA" {
		t.Errorf("expected reCAPTCHA detection")
	}
}

func TestDetectCloudflare(t *testing.T) {
	c := &capture.Capture{
		StatusCode: 403,
		Header:     http.Header{"Server": {"cloudflare"}},
	}
	if detected, src := detectCloudflare(c); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	c = &capture.Capture{
		StatusCode: 503,
		Header:     http.Header{},
		Body:       []byte("<html>... cf-turnstile ...</html>"),
	}
	if detected, src := detectCloudflare(c); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestAnalyze(t *testing.T) {
	if Analyze(nil, DefaultDetectors()) {
		t.Errorf("expected nil capture not to be detected")
	}

	c := &capture.Capture{StatusCode: 200, Header: http.Header{}, Body: []byte("{}")}
	if Analyze(c, DefaultDetectors()) {
		t.Errorf("expected clean response not to be detected")
	}
	if c.Blocked || c.BlockedBy != "" {
		t.Errorf("expected capture to stay unmarked, got %v %q", c.Blocked, c.BlockedBy)
	}

	c = &capture.Capture{StatusCode: 429, Header: http.Header{}}
	if !Analyze(c, DefaultDetectors()) {
		t.Fatalf("expected 429 to be detected")
	}
	if !c.Blocked || c.BlockedBy != "RateLimit" {
		t.Errorf("expected capture marked RateLimit, got %v %q", c.Blocked, c.BlockedBy)
	}
}
