package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/FranksOps/trendscout/internal/config"
	"github.com/FranksOps/trendscout/internal/fingerprint"
	"github.com/FranksOps/trendscout/internal/logger"
	"github.com/FranksOps/trendscout/internal/metrics"
	"github.com/FranksOps/trendscout/internal/pipeline"
	"github.com/FranksOps/trendscout/internal/report"
	"github.com/FranksOps/trendscout/internal/scraper"
	"github.com/FranksOps/trendscout/pkg/useragent"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportedError marks an error whose failure message is already on stdout.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgPath string
	stdout  io.Writer
	stderr  io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "trendscout",
		Short:         "Fetch trending searches from Google Trends",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (default ./trendscout.yaml or ~/.config/trendscout/trendscout.yaml)")
	pf.String("geo", "", "region code sent to Google, e.g. US")
	pf.String("hl", "", "host language, e.g. en-US")
	pf.String("region", "", "region label printed in headers")
	pf.Duration("timeout", 0, "per request timeout")
	pf.String("fingerprint", "", "TLS fingerprint: go, chrome, firefox, safari, random")
	pf.String("proxy", "", "proxy URL for every request")
	pf.Bool("rotate-ua", false, "rotate desktop browser user agents instead of the fixed one")
	pf.String("ua-order", "", "rotation order with --rotate-ua: sequential or random")
	pf.Bool("respect-robots", false, "check robots.txt before each request")
	pf.String("format", "", "output format: text or json")
	pf.Int("width", 0, "truncate titles to this many columns (0 = no limit)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file at exit")

	for key, flag := range map[string]string{
		"geo":                    "geo",
		"hl":                     "hl",
		"region":                 "region",
		"http.timeout":           "timeout",
		"http.fingerprint":       "fingerprint",
		"http.proxy":             "proxy",
		"http.rotate_user_agent": "rotate-ua",
		"http.user_agent_order":  "ua-order",
		"http.respect_robots":    "respect-robots",
		"output.format":          "format",
		"output.width":           "width",
		"log.level":              "log-level",
		"log.format":             "log-format",
		"metrics.textfile":       "metrics-textfile",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		hotCmd(a),
		trendingCmd(a),
		relatedCmd(a),
		configCmd(a),
		versionCmd(),
	)
	return root
}

// setup loads configuration and builds the run logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log.With("run_id", uuid.NewString())
	slog.SetDefault(a.logger)
	a.logger.Debug("configuration loaded", "config", cfg.String())
	return nil
}

// fetcher builds the shared fetch layer. Cookies are kept for the explore
// client, which relies on the session cookie.
func (a *app) fetcher(cookies bool) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(a.cfg.HTTP.Fingerprint)
	if err != nil {
		return nil, err
	}
	proxy, err := a.cfg.ProxyURL()
	if err != nil {
		return nil, err
	}
	order, err := useragent.ParseOrder(a.cfg.HTTP.UserAgentOrder)
	if err != nil {
		return nil, err
	}
	return scraper.NewFetcher(scraper.FetchConfig{
		Timeout:        a.cfg.HTTP.Timeout,
		UseCookieJar:   cookies,
		UserAgents:     useragent.New(a.cfg.HTTP.RotateUserAgent, order),
		Fingerprint:    profile,
		Proxy:          proxy,
		AcceptLanguage: acceptLanguage(a.cfg.HL),
		RespectRobots:  a.cfg.HTTP.RespectRobots,
		Logger:         a.logger,
	})
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	format, err := report.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Geo:         a.cfg.Geo,
		HL:          a.cfg.HL,
		Region:      a.cfg.Region,
		AllKeywords: a.cfg.Output.AllKeywords,
		Report:      report.Options{Format: format, Width: a.cfg.Output.Width},
		Logger:      a.logger,
	}, nil
}

// finish writes the metrics textfile, if configured, and marks run errors
// as already reported.
func (a *app) finish(runErr error) error {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.logger.Error("failed to write metrics textfile", "path", path, "err", err)
		}
	}
	if runErr != nil {
		return &reportedError{err: runErr}
	}
	return nil
}

// acceptLanguage turns "en-US" into "en-US,en;q=0.9".
func acceptLanguage(hl string) string {
	if base, _, ok := strings.Cut(hl, "-"); ok {
		return fmt.Sprintf("%s,%s;q=0.9", hl, base)
	}
	return hl
}

// baseLanguage returns the primary subtag of hl; the hottrends endpoint
// expects "en" rather than "en-US".
func baseLanguage(hl string) string {
	base, _, _ := strings.Cut(hl, "-")
	return base
}
