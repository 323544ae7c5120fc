// Package pipeline runs one trends report end to end: fetch, classify any
// failure, render. Every failure is printed before it is returned, so the
// caller only needs the error for the exit status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/FranksOps/trendscout/internal/metrics"
	"github.com/FranksOps/trendscout/internal/report"
	"github.com/FranksOps/trendscout/internal/scraper"
	"github.com/FranksOps/trendscout/internal/trends"
)

// DefaultKeywords are compared when the trending run is given none.
var DefaultKeywords = []string{"trending products", "viral products"}

// Pipeline wires the trends sources to the report writer.
type Pipeline struct {
	Hot    trends.HotTrendsSource
	Client trends.Client

	Geo    string
	HL     string
	Region string // label printed in headers, e.g. "US"

	// AllKeywords prints rising queries for every keyword instead of only
	// the first one.
	AllKeywords bool
	Report      report.Options
	Logger      *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) region() string {
	if p.Region != "" {
		return p.Region
	}
	return p.Geo
}

// RunHot prints the realtime trending list.
func (p *Pipeline) RunHot(ctx context.Context, w io.Writer) error {
	if p.Hot == nil {
		return errors.New("pipeline: hot trends source is nil")
	}
	out, err := report.New(w, p.Report)
	if err != nil {
		return err
	}

	rep := report.HotReport{Region: p.region()}
	items, err := p.Hot.HotTrends(ctx, p.Geo, p.HL)
	if err != nil {
		p.logger().Error("hot trends failed", "err", err)
		rep.Failure = Classify("", err)
	} else {
		rep.Trends = items
		metrics.RecordReported("hot", len(trends.Top(items, trends.MaxItems)))
	}

	if rerr := out.Hot(rep); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// RunTrending prints the daily trending searches, then the rising related
// queries for keywords (DefaultKeywords when empty).
func (p *Pipeline) RunTrending(ctx context.Context, w io.Writer, keywords []string) error {
	if p.Client == nil {
		return errors.New("pipeline: trends client is nil")
	}
	out, err := report.New(w, p.Report)
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	rep := report.TrendingReport{Region: p.region()}
	err = p.trending(ctx, &rep, keywords)

	if rerr := out.Trending(rep); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

func (p *Pipeline) trending(ctx context.Context, rep *report.TrendingReport, keywords []string) error {
	searches, err := p.Client.TrendingSearches(ctx, p.Geo)
	if err != nil {
		p.logger().Error("trending searches failed", "err", err)
		rep.Failure = Classify(report.StageSearches, err)
		return err
	}
	rep.Searches = searches
	metrics.RecordReported("trending", len(trends.Top(searches, trends.MaxItems)))

	return p.related(ctx, rep, keywords)
}

// RunRelated prints only the rising related queries for keywords.
func (p *Pipeline) RunRelated(ctx context.Context, w io.Writer, keywords []string) error {
	if p.Client == nil {
		return errors.New("pipeline: trends client is nil")
	}
	if len(keywords) == 0 {
		return errors.New("pipeline: no keywords given")
	}
	out, err := report.New(w, p.Report)
	if err != nil {
		return err
	}

	rep := report.TrendingReport{Region: p.region()}
	err = p.related(ctx, &rep, keywords)

	if rerr := out.Related(rep); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

func (p *Pipeline) related(ctx context.Context, rep *report.TrendingReport, keywords []string) error {
	related, err := p.Client.RelatedQueries(ctx, keywords, p.Geo)
	if err != nil {
		p.logger().Error("related queries failed", "keywords", keywords, "err", err)
		rep.Failure = Classify(report.StageRelated, err)
		return err
	}
	if !p.AllKeywords && len(related) > 1 {
		related = related[:1]
	}
	rep.Related = related

	n := 0
	for _, rq := range related {
		n += len(trends.Top(rq.Rising, trends.MaxItems))
	}
	metrics.RecordReported("rising", n)
	return nil
}

// Classify turns err into the printed failure: an endpoint that answered
// with a non-200 status becomes a status line, anything else (transport
// errors, blocks, malformed bodies) an error line.
func Classify(stage string, err error) *report.Failure {
	if err == nil {
		return nil
	}
	var se *trends.StatusError
	if errors.As(err, &se) {
		return &report.Failure{Stage: stage, Status: se.Code}
	}
	return &report.Failure{Stage: stage, Message: message(err)}
}

func message(err error) string {
	switch {
	case scraper.IsTimeout(err):
		return fmt.Sprintf("request timed out (%v)", err)
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}
