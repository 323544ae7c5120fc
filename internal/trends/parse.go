package trends

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// title accepts both shapes Google uses for a trend title: a bare string or
// an object carrying the query. Any other value leaves the title empty so
// one odd entry prints the placeholder instead of failing the list.
type title string

func (t *title) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) == nil {
			*t = title(s)
		}
	case '{':
		var obj struct {
			Query json.RawMessage `json:"query"`
		}
		if json.Unmarshal(data, &obj) == nil {
			var s string
			if json.Unmarshal(obj.Query, &s) == nil {
				*t = title(s)
			}
		}
	}
	return nil
}

func (t title) orPlaceholder() string {
	if s := strings.TrimSpace(string(t)); s != "" {
		return s
	}
	return Placeholder
}

type rawArticle struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	TimeAgo string `json:"timeAgo"`
	Snippet string `json:"snippet"`
}

func (a rawArticle) article() Article {
	return Article{
		Title:   CleanText(a.Title),
		Source:  a.Source,
		URL:     a.URL,
		TimeAgo: a.TimeAgo,
		Snippet: CleanText(a.Snippet),
	}
}

func articles(raw []rawArticle) []Article {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Article, 0, len(raw))
	for _, a := range raw {
		out = append(out, a.article())
	}
	return out
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(StripPrefix(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// ParseHotTrends decodes the realtime hottrends payload:
//
//	{"trends":[{"title":"...","relatedArticles":[{"source":"..."}]}]}
//
// A payload without a "trends" key yields an empty list.
func ParseHotTrends(body []byte) ([]Trend, error) {
	var payload struct {
		Trends []struct {
			Title            title        `json:"title"`
			FormattedTraffic string       `json:"formattedTraffic"`
			RelatedArticles  []rawArticle `json:"relatedArticles"`
		} `json:"trends"`
	}
	if err := decode(body, &payload); err != nil {
		return nil, err
	}

	out := make([]Trend, 0, len(payload.Trends))
	for _, t := range payload.Trends {
		out = append(out, Trend{
			Title:    t.Title.orPlaceholder(),
			Traffic:  t.FormattedTraffic,
			Articles: articles(t.RelatedArticles),
		})
	}
	return out, nil
}

// ParseDailyTrends decodes the dailytrends payload, flattening the trending
// searches of every returned day, most recent day first.
func ParseDailyTrends(body []byte) ([]Trend, error) {
	var payload struct {
		Default struct {
			Days []struct {
				Date     string `json:"date"`
				Searches []struct {
					Title            title  `json:"title"`
					FormattedTraffic string `json:"formattedTraffic"`
					RelatedQueries   []struct {
						Query string `json:"query"`
					} `json:"relatedQueries"`
					Articles []rawArticle `json:"articles"`
				} `json:"trendingSearches"`
			} `json:"trendingSearchesDays"`
		} `json:"default"`
	}
	if err := decode(body, &payload); err != nil {
		return nil, err
	}

	var out []Trend
	for _, day := range payload.Default.Days {
		for _, s := range day.Searches {
			t := Trend{
				Title:    s.Title.orPlaceholder(),
				Traffic:  s.FormattedTraffic,
				Articles: articles(s.Articles),
			}
			for _, q := range s.RelatedQueries {
				if q.Query != "" {
					t.RelatedQueries = append(t.RelatedQueries, q.Query)
				}
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Widget is one entry of the explore response. Request is forwarded
// verbatim to the widgetdata endpoints.
type Widget struct {
	ID      string
	Token   string
	Keyword string
	Request json.RawMessage
}

// IsRelatedQueries reports whether the widget serves related queries.
func (w Widget) IsRelatedQueries() bool {
	return strings.HasPrefix(w.ID, "RELATED_QUERIES")
}

// ParseExplore decodes the explore response into its widgets.
func ParseExplore(body []byte) ([]Widget, error) {
	var payload struct {
		Widgets []struct {
			ID      string          `json:"id"`
			Token   string          `json:"token"`
			Request json.RawMessage `json:"request"`
		} `json:"widgets"`
	}
	if err := decode(body, &payload); err != nil {
		return nil, err
	}

	out := make([]Widget, 0, len(payload.Widgets))
	for _, w := range payload.Widgets {
		out = append(out, Widget{
			ID:      w.ID,
			Token:   w.Token,
			Keyword: widgetKeyword(w.Request),
			Request: w.Request,
		})
	}
	return out, nil
}

func widgetKeyword(req json.RawMessage) string {
	if len(req) == 0 {
		return ""
	}
	var r struct {
		Restriction struct {
			ComplexKeywordsRestriction struct {
				Keyword []struct {
					Value string `json:"value"`
				} `json:"keyword"`
			} `json:"complexKeywordsRestriction"`
		} `json:"restriction"`
	}
	if err := json.Unmarshal(req, &r); err != nil {
		return ""
	}
	if kws := r.Restriction.ComplexKeywordsRestriction.Keyword; len(kws) > 0 {
		return kws[0].Value
	}
	return ""
}

// ParseRelatedSearches decodes a relatedsearches widget response. The first
// ranked list holds the top queries, the second the rising ones; either may
// be absent when Google has too little data.
func ParseRelatedSearches(keyword string, body []byte) (RelatedQueries, error) {
	var payload struct {
		Default struct {
			RankedList []struct {
				RankedKeyword []struct {
					Query          string `json:"query"`
					Value          int    `json:"value"`
					FormattedValue string `json:"formattedValue"`
					Link           string `json:"link"`
				} `json:"rankedKeyword"`
			} `json:"rankedList"`
		} `json:"default"`
	}
	if err := decode(body, &payload); err != nil {
		return RelatedQueries{}, err
	}

	rq := RelatedQueries{Keyword: keyword}
	for i, list := range payload.Default.RankedList {
		rows := make([]RankedQuery, 0, len(list.RankedKeyword))
		for _, k := range list.RankedKeyword {
			rows = append(rows, RankedQuery{
				Query:          k.Query,
				Value:          k.Value,
				FormattedValue: k.FormattedValue,
				Link:           k.Link,
			})
		}
		switch i {
		case 0:
			rq.Top = rows
		case 1:
			rq.Rising = rows
		}
	}
	return rq, nil
}
