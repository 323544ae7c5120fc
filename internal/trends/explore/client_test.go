package explore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/FranksOps/trendscout/internal/scraper"
	"github.com/FranksOps/trendscout/internal/trends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyBody = `)]}',
{"default":{"trendingSearchesDays":[{"date":"20260118","trendingSearches":[
	{"title":{"query":"Storm Ingrid"},"formattedTraffic":"500K+"},
	{"title":{"query":"Lunar New Year"},"formattedTraffic":"200K+"}
]}]}}`

func relatedBody(rising ...string) string {
	rows := ""
	for i, q := range rising {
		if i > 0 {
			rows += ","
		}
		rows += fmt.Sprintf(`{"query":%q,"value":%d,"formattedValue":"+%d%%"}`, q, (i+1)*100, (i+1)*100)
	}
	return `)]}', {"default":{"rankedList":[{"rankedKeyword":[]},{"rankedKeyword":[` + rows + `]}]}}`
}

type fakeTrends struct {
	*httptest.Server
	sessions  atomic.Int32
	noCookie  atomic.Int32
	exploreRq atomic.Value

	mu     sync.Mutex
	tokens []string
}

func (ft *fakeTrends) seenTokens() []string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]string(nil), ft.tokens...)
}

func newFakeTrends(t *testing.T) *fakeTrends {
	t.Helper()
	ft := &fakeTrends{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ft.sessions.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "NID", Value: "session-cookie", Path: "/"})
		_, _ = w.Write([]byte("<html></html>"))
	})
	requireCookie := func(w http.ResponseWriter, r *http.Request) bool {
		if _, err := r.Cookie("NID"); err != nil {
			ft.noCookie.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			return false
		}
		return true
	}
	mux.HandleFunc("/trends/api/dailytrends", func(w http.ResponseWriter, r *http.Request) {
		if !requireCookie(w, r) {
			return
		}
		_, _ = w.Write([]byte(dailyBody))
	})
	mux.HandleFunc("/trends/api/explore", func(w http.ResponseWriter, r *http.Request) {
		if !requireCookie(w, r) {
			return
		}
		ft.exploreRq.Store(r.URL.Query().Get("req"))

		var p explorePayload
		if err := json.Unmarshal([]byte(r.URL.Query().Get("req")), &p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		widgets := []string{`{"id":"TIMESERIES","token":"ts","request":{}}`}
		for i, item := range p.ComparisonItem {
			id := "RELATED_QUERIES"
			if i > 0 {
				id = fmt.Sprintf("RELATED_QUERIES_%d", i)
			}
			widgets = append(widgets, fmt.Sprintf(
				`{"id":%q,"token":"tok-%d","request":{"restriction":{"complexKeywordsRestriction":{"keyword":[{"type":"BROAD","value":%q}]}}}}`,
				id, i, item.Keyword))
		}
		body := `)]}'` + "\n" + `{"widgets":[`
		for i, wd := range widgets {
			if i > 0 {
				body += ","
			}
			body += wd
		}
		_, _ = w.Write([]byte(body + "]}"))
	})
	mux.HandleFunc("/trends/api/widgetdata/relatedsearches", func(w http.ResponseWriter, r *http.Request) {
		if !requireCookie(w, r) {
			return
		}
		token := r.URL.Query().Get("token")
		ft.mu.Lock()
		ft.tokens = append(ft.tokens, token)
		ft.mu.Unlock()
		switch token {
		case "tok-0":
			_, _ = w.Write([]byte(relatedBody("stanley cup", "led mask")))
		case "tok-1":
			_, _ = w.Write([]byte(relatedBody("ice roller")))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	ft.Server = httptest.NewServer(mux)
	t.Cleanup(ft.Close)
	return ft
}

func newClient(t *testing.T, base string, opts Options) *Client {
	t.Helper()
	f, err := scraper.NewFetcher(scraper.FetchConfig{UseCookieJar: true})
	require.NoError(t, err)
	opts.BaseURL = base
	return New(f, opts)
}

func TestTrendingSearches(t *testing.T) {
	ft := newFakeTrends(t)
	c := newClient(t, ft.URL, Options{})

	items, err := c.TrendingSearches(context.Background(), "US")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Storm Ingrid", items[0].Title)
	assert.Equal(t, "200K+", items[1].Traffic)
	assert.Equal(t, int32(1), ft.sessions.Load())
	assert.Zero(t, ft.noCookie.Load())
}

func TestRelatedQueries(t *testing.T) {
	ft := newFakeTrends(t)
	tz := -60
	c := newClient(t, ft.URL+"/", Options{TZ: &tz, Timeframe: "today 12-m"})

	keywords := []string{"trending products", "viral products"}
	got, err := c.RelatedQueries(context.Background(), keywords, "US")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "trending products", got[0].Keyword)
	require.Len(t, got[0].Rising, 2)
	assert.Equal(t, trends.RankedQuery{Query: "stanley cup", Value: 100, FormattedValue: "+100%"}, got[0].Rising[0])
	assert.Empty(t, got[0].Top)

	assert.Equal(t, "viral products", got[1].Keyword)
	require.Len(t, got[1].Rising, 1)
	assert.Equal(t, "ice roller", got[1].Rising[0].Query)

	assert.Equal(t, []string{"tok-0", "tok-1"}, ft.seenTokens())

	var sent explorePayload
	require.NoError(t, json.Unmarshal([]byte(ft.exploreRq.Load().(string)), &sent))
	require.Len(t, sent.ComparisonItem, 2)
	assert.Equal(t, comparisonItem{Keyword: "trending products", Time: "today 12-m", Geo: "US"}, sent.ComparisonItem[0])
}

func TestRelatedQueries_SessionOnce(t *testing.T) {
	ft := newFakeTrends(t)
	c := newClient(t, ft.URL, Options{})

	_, err := c.TrendingSearches(context.Background(), "US")
	require.NoError(t, err)
	_, err = c.RelatedQueries(context.Background(), []string{"trending products"}, "US")
	require.NoError(t, err)

	assert.Equal(t, int32(1), ft.sessions.Load())
}

func TestRelatedQueries_KeywordValidation(t *testing.T) {
	c := New(nil, Options{})

	_, err := c.RelatedQueries(context.Background(), nil, "US")
	assert.ErrorIs(t, err, ErrNoKeywords)

	_, err = c.RelatedQueries(context.Background(), []string{"a", "b", "c", "d", "e", "f"}, "US")
	assert.ErrorIs(t, err, ErrTooManyKeywords)
}

func TestRelatedQueries_NoWidgets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`)]}', {"widgets":[{"id":"TIMESERIES"}]}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Options{})
	_, err := c.RelatedQueries(context.Background(), []string{"x"}, "US")
	assert.ErrorIs(t, err, errNoRelatedWidgets)
}

func TestRelatedQueries_WidgetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trends/api/explore":
			_, _ = w.Write([]byte(`)]}', {"widgets":[{"id":"RELATED_QUERIES","token":"t","request":{}}]}`))
		case "/trends/api/widgetdata/relatedsearches":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Options{})
	_, err := c.RelatedQueries(context.Background(), []string{"x"}, "US")

	var se *trends.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestTrendingSearches_BootstrapFailureIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(dailyBody))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Options{})
	items, err := c.TrendingSearches(context.Background(), "US")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestNew_Defaults(t *testing.T) {
	c := New(nil, Options{})
	assert.Equal(t, DefaultBaseURL, c.base)
	assert.Equal(t, DefaultHL, c.hl)
	assert.Equal(t, "360", c.tz)
	assert.Equal(t, DefaultTimeframe, c.timeframe)
}
