// Package report renders trends results for the console, either as the
// emoji-annotated text layout or as indented JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/FranksOps/trendscout/internal/trends"
	"github.com/mattn/go-runewidth"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a config value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("report: unknown format %q", s)
}

// Stages a TrendingReport can fail at.
const (
	StageSearches = "searches"
	StageRelated  = "related"
)

// Failure is what gets printed instead of results. A non-zero Status means
// the endpoint answered with that HTTP status; otherwise Message carries the
// error text.
type Failure struct {
	Stage   string `json:"stage,omitempty"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"error,omitempty"`
}

// HotReport is the outcome of the realtime hottrends run.
type HotReport struct {
	Region  string
	Trends  []trends.Trend
	Failure *Failure
}

// TrendingReport is the outcome of the trending searches plus related
// queries run. Related holds only the keywords whose rising queries
// should be shown.
type TrendingReport struct {
	Region   string
	Searches []trends.Trend
	Related  []trends.RelatedQueries
	Failure  *Failure
}

// Options configures a Writer.
type Options struct {
	Format Format
	// Width truncates titles and queries to this many terminal cells.
	// Zero disables truncation.
	Width int
}

// Writer renders reports to an io.Writer.
type Writer struct {
	w      io.Writer
	format Format
	tmpl   *template.Template
}

// New returns a Writer for w.
func New(w io.Writer, opts Options) (*Writer, error) {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Format != FormatText && opts.Format != FormatJSON {
		return nil, fmt.Errorf("report: unknown format %q", opts.Format)
	}

	tmpl, err := template.New("report").Funcs(funcs(opts.Width)).Parse(textTemplates)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return &Writer{w: w, format: opts.Format, tmpl: tmpl}, nil
}

// Hot renders the realtime trending list.
func (r *Writer) Hot(rep HotReport) error {
	if r.format == FormatJSON {
		return WriteJSON(r.w, hotJSON{
			Region:  rep.Region,
			Trends:  trends.Top(rep.Trends, trends.MaxItems),
			Failure: rep.Failure,
		})
	}
	return r.execute("hot", rep)
}

// Trending renders the trending searches followed by rising queries.
func (r *Writer) Trending(rep TrendingReport) error {
	if r.format == FormatJSON {
		return WriteJSON(r.w, trendingJSON{
			Region:   rep.Region,
			Searches: trends.Top(rep.Searches, trends.MaxItems),
			Related:  topRelated(rep.Related),
			Failure:  rep.Failure,
		})
	}
	return r.execute("trending", rep)
}

// Related renders only the rising queries section.
func (r *Writer) Related(rep TrendingReport) error {
	if r.format == FormatJSON {
		return WriteJSON(r.w, trendingJSON{
			Region:  rep.Region,
			Related: topRelated(rep.Related),
			Failure: rep.Failure,
		})
	}
	return r.execute("related", rep)
}

func (r *Writer) execute(name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(r.w, name, data); err != nil {
		return fmt.Errorf("report: %s: %w", name, err)
	}
	return nil
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

type hotJSON struct {
	Region  string         `json:"region"`
	Trends  []trends.Trend `json:"trends"`
	Failure *Failure       `json:"failure,omitempty"`
}

type trendingJSON struct {
	Region   string                  `json:"region"`
	Searches []trends.Trend          `json:"searches,omitempty"`
	Related  []trends.RelatedQueries `json:"related,omitempty"`
	Failure  *Failure                `json:"failure,omitempty"`
}

func topRelated(in []trends.RelatedQueries) []trends.RelatedQueries {
	if len(in) == 0 {
		return nil
	}
	out := make([]trends.RelatedQueries, 0, len(in))
	for _, rq := range in {
		out = append(out, trends.RelatedQueries{
			Keyword: rq.Keyword,
			Top:     trends.Top(rq.Top, trends.MaxItems),
			Rising:  trends.Top(rq.Rising, trends.MaxItems),
		})
	}
	return out
}

func funcs(width int) template.FuncMap {
	return template.FuncMap{
		"inc":  func(i int) int { return i + 1 },
		"clip": func(s string) string { return Clip(s, width) },
		"top": func(v any) any {
			switch items := v.(type) {
			case []trends.Trend:
				return trends.Top(items, trends.MaxItems)
			case []trends.RankedQuery:
				return trends.Top(items, trends.MaxItems)
			}
			return v
		},
		"searchesFailed": func(rep TrendingReport) bool {
			return rep.Failure != nil && rep.Failure.Stage == StageSearches
		},
	}
}

// cells measures terminal width independently of the locale, so ambiguous
// runes such as the ellipsis count as one cell.
var cells = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// Clip truncates s to width terminal cells, marking the cut with an
// ellipsis. Wide runes (CJK, emoji) count as two cells.
func Clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return cells.Truncate(s, width, "…")
}

const textTemplates = `
{{- define "failure"}}{{if .Status}}❌ Status: {{.Status}}
{{else}}❌ Error: {{.Message}}

💡 Google may be blocking automated requests
🎯 Alternative: Use manual export or third-party services
{{end}}{{end}}

{{- define "export"}}

📊 Alternative: Google Trends Export Format
You can manually export from: trends.google.com
Then parse the CSV for trending keywords!
{{end}}

{{- define "hot"}}🔍 Fetching Google Trends (Realtime)...

{{if .Failure}}{{template "failure" .Failure}}{{else}}📈 Trending Right Now ({{.Region}}):

{{range $i, $t := top .Trends}}   {{inc $i}}. {{clip $t.Title}}
{{if $t.Articles}}      📰 {{(index $t.Articles 0).Source}}
{{end}}{{end}}
✅ Google Trends API working!
{{end}}{{template "export"}}{{end}}

{{- define "rising"}}{{range .Related}}
📊 Rising searches for '{{.Keyword}}':
{{range top .Rising}}   🔥 {{clip .Query}} ({{.Value}}% increase)
{{end}}{{end}}{{end}}

{{- define "related"}}🔎 Analyzing trending queries...
{{if .Failure}}{{template "failure" .Failure}}{{else}}{{template "rising" .}}
✅ Google Trends is FREE and working!
{{end}}{{end}}

{{- define "trending"}}🔍 Fetching Google Trends...

{{if searchesFailed .}}{{template "failure" .Failure}}{{else}}📈 Top Trending Searches ({{.Region}}):
{{range $i, $t := top .Searches}}   {{inc $i}}. {{clip $t.Title}}
{{end}}
💡 These are trending RIGHT NOW on Google
🎯 Use these keywords for product research!

{{template "related" .}}{{end}}{{end}}
`
