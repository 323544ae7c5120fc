// Package config loads trendscout settings from defaults, an optional YAML
// file, a .env file, TRENDSCOUT_* environment variables and CLI flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FranksOps/trendscout/internal/fingerprint"
	"github.com/FranksOps/trendscout/internal/logger"
	"github.com/FranksOps/trendscout/internal/report"
	"github.com/FranksOps/trendscout/internal/trends/explore"
	"github.com/FranksOps/trendscout/internal/trends/google"
	"github.com/FranksOps/trendscout/pkg/useragent"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TRENDSCOUT_HTTP_TIMEOUT.
const EnvPrefix = "TRENDSCOUT"

// Configuration validation errors.
var (
	ErrMissingGeo         = errors.New("geo is required")
	ErrInvalidTimeout     = errors.New("http.timeout must be positive")
	ErrInvalidFingerprint = errors.New("http.fingerprint must be one of: go, chrome, firefox, safari, random")
	ErrInvalidProxy       = errors.New("http.proxy must be an absolute http, https or socks5 URL")
	ErrInvalidUAOrder     = errors.New("http.user_agent_order must be 'sequential' or 'random'")
	ErrInvalidEndpoint    = errors.New("endpoints must be absolute http(s) URLs")
	ErrTooManyKeywords    = fmt.Errorf("keywords accepts at most %d terms", explore.MaxKeywords)
	ErrInvalidFormat      = errors.New("output.format must be 'text' or 'json'")
	ErrInvalidWidth       = errors.New("output.width must be non-negative")
	ErrInvalidLogLevel    = errors.New("log.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat   = errors.New("log.format must be 'text' or 'json'")
)

// Config is the complete trendscout configuration.
type Config struct {
	Geo       string          `mapstructure:"geo" yaml:"geo"`
	HL        string          `mapstructure:"hl" yaml:"hl"`
	TZ        int             `mapstructure:"tz" yaml:"tz"`
	Timeframe string          `mapstructure:"timeframe" yaml:"timeframe"`
	Region    string          `mapstructure:"region" yaml:"region"`
	Keywords  []string        `mapstructure:"keywords" yaml:"keywords"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Endpoints EndpointsConfig `mapstructure:"endpoints" yaml:"endpoints"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// HTTPConfig controls the fetch layer.
type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Fingerprint     string        `mapstructure:"fingerprint" yaml:"fingerprint"`
	Proxy           string        `mapstructure:"proxy" yaml:"proxy"`
	RotateUserAgent bool          `mapstructure:"rotate_user_agent" yaml:"rotate_user_agent"`
	UserAgentOrder  string        `mapstructure:"user_agent_order" yaml:"user_agent_order"`
	RespectRobots   bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
}

// EndpointsConfig points the clients at Google or at a stand-in server.
type EndpointsConfig struct {
	Hot  string `mapstructure:"hot" yaml:"hot"`
	Base string `mapstructure:"base" yaml:"base"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format"`
	Width       int    `mapstructure:"width" yaml:"width"`
	AllKeywords bool   `mapstructure:"all_keywords" yaml:"all_keywords"`
}

// LogConfig controls the stderr logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig names the node_exporter textfile written at exit. Empty
// disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Geo:       "US",
		HL:        "en-US",
		TZ:        explore.DefaultTZ,
		Timeframe: explore.DefaultTimeframe,
		Region:    "US",
		Keywords:  []string{"trending products", "viral products"},
		HTTP: HTTPConfig{
			Timeout:        10 * time.Second,
			Fingerprint:    string(fingerprint.ProfileGo),
			UserAgentOrder: string(useragent.OrderSequential),
		},
		Endpoints: EndpointsConfig{
			Hot:  google.DefaultHotURL,
			Base: explore.DefaultBaseURL,
		},
		Output: OutputConfig{Format: string(report.FormatText)},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults registers every key of Default on v so environment variables
// and flags can override keys that no config file mentions.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("geo", d.Geo)
	v.SetDefault("hl", d.HL)
	v.SetDefault("tz", d.TZ)
	v.SetDefault("timeframe", d.Timeframe)
	v.SetDefault("region", d.Region)
	v.SetDefault("keywords", d.Keywords)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.fingerprint", d.HTTP.Fingerprint)
	v.SetDefault("http.proxy", d.HTTP.Proxy)
	v.SetDefault("http.rotate_user_agent", d.HTTP.RotateUserAgent)
	v.SetDefault("http.user_agent_order", d.HTTP.UserAgentOrder)
	v.SetDefault("http.respect_robots", d.HTTP.RespectRobots)
	v.SetDefault("endpoints.hot", d.Endpoints.Hot)
	v.SetDefault("endpoints.base", d.Endpoints.Base)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.width", d.Output.Width)
	v.SetDefault("output.all_keywords", d.Output.AllKeywords)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Load reads configuration into v and decodes it. path selects a config
// file explicitly; when empty, trendscout.yaml is looked up in the working
// directory and in $HOME/.config/trendscout, and a missing file is not an
// error. Flags must already be bound to v.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("trendscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "trendscout"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv exports the variables of path into the process environment
// without overriding variables that are already set. A missing file is
// ignored.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// SaveConfig writes c to path as YAML.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Geo) == "" {
		return ErrMissingGeo
	}
	if len(c.Keywords) > explore.MaxKeywords {
		return ErrTooManyKeywords
	}

	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if _, err := fingerprint.ParseProfile(c.HTTP.Fingerprint); err != nil {
		return ErrInvalidFingerprint
	}
	if c.HTTP.Proxy != "" {
		if _, err := c.ProxyURL(); err != nil {
			return err
		}
	}
	if _, err := useragent.ParseOrder(c.HTTP.UserAgentOrder); err != nil {
		return ErrInvalidUAOrder
	}

	for name, raw := range map[string]string{"endpoints.hot": c.Endpoints.Hot, "endpoints.base": c.Endpoints.Base} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEndpoint, name, raw)
		}
	}

	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return ErrInvalidFormat
	}
	if c.Output.Width < 0 {
		return ErrInvalidWidth
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// ProxyURL parses http.proxy. It returns nil when no proxy is configured.
func (c *Config) ProxyURL() (*url.URL, error) {
	if c.HTTP.Proxy == "" {
		return nil, nil
	}
	u, err := url.Parse(c.HTTP.Proxy)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, c.HTTP.Proxy)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return u, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, c.HTTP.Proxy)
}

// String summarises the settings that matter when reading logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Geo: %s, HL: %s, Keywords: %d, Timeout: %s, Fingerprint: %s}",
		c.Geo, c.HL, len(c.Keywords), c.HTTP.Timeout, c.HTTP.Fingerprint)
}
