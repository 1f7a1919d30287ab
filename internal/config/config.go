// Package config resolves run settings from flags, QAHARVEST_* environment
// variables and an optional config file, on top of the variant defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/qaharvest/internal/qa"
	"github.com/FranksOps/qaharvest/internal/report"
	"github.com/FranksOps/qaharvest/pkg/httpclient"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: --max-urls is QAHARVEST_MAX_URLS.
const EnvPrefix = "QAHARVEST"

// Engine selects how pages are loaded.
type Engine string

const (
	EngineChrome Engine = "chrome"
	EngineHTTP   Engine = "http"
)

// Config is the resolved configuration of one run.
type Config struct {
	Variant qa.Variant
	Engine  Engine
	Query   string

	Output   string
	Sheet    string
	MaxURLs  int
	MaxPages int

	NavTimeout   time.Duration
	Settle       time.Duration
	// SearchSettle is the pause on every search results page.
	SearchSettle time.Duration
	SearchURL    string

	Headless    bool
	RemoteURL   string
	ChromePath  string
	UserAgent   string
	Fingerprint httpclient.Fingerprint

	RespectRobots bool
	RPS           float64
	Jitter        float64

	Audit        string
	MetricsPort  int
	ReportFormat report.Format

	LogLevel  string
	LogFormat string
	LogOutput string
}

// Defaults returns the settings a run of variant v uses when nothing is
// overridden.
func Defaults(v qa.Variant) Config {
	p := v.Profile()
	if _, err := qa.ParseVariant(string(v)); err != nil {
		v = qa.VariantPairs
	}
	return Config{
		Variant:      v,
		Engine:       EngineChrome,
		Query:        p.Topic,
		Output:       p.OutputFile,
		Sheet:        p.SheetName,
		MaxURLs:      p.MaxURLs,
		MaxPages:     p.MaxPages,
		NavTimeout:   p.NavTimeout,
		Settle:       p.SettleDelay,
		SearchSettle: p.SearchSettle,
		Headless:     true,
		Fingerprint:  httpclient.FingerprintChrome,
		ReportFormat: report.FormatText,
		LogLevel:     "info",
		LogFormat:    "text",
		LogOutput:    "stderr",
	}
}

// RegisterFlags adds every setting to fs. Flags left unset fall back to the
// variant defaults, so their own defaults are only placeholders.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("variant", string(qa.VariantPairs), "extraction variant: qa or questions")
	fs.String("engine", string(EngineChrome), "page engine: chrome or http")
	fs.StringP("output", "o", "", "output workbook (default per variant)")
	fs.String("sheet", "", "sheet name (default per variant)")
	fs.Int("max-urls", 0, "maximum result pages to visit (default per variant)")
	fs.Int("max-pages", 0, "maximum search result pages to read (default per variant)")
	fs.Duration("nav-timeout", 0, "per page navigation timeout (default per variant)")
	fs.Duration("settle", 0, "pause after a page has loaded (default per variant)")
	fs.Duration("search-settle", 0, "pause on each search results page (default per variant)")
	fs.String("search-url", "", "search engine base URL")
	fs.Bool("headless", true, "run chrome headless")
	fs.String("remote-url", "", "CDP websocket URL of an already running chrome")
	fs.String("chrome-path", "", "chrome binary to launch")
	fs.String("user-agent", "", "User-Agent to present")
	fs.String("fingerprint", string(httpclient.FingerprintChrome), "TLS fingerprint for the http engine: chrome, firefox, safari, go or random")
	fs.Bool("respect-robots", false, "skip pages disallowed by robots.txt")
	fs.Float64("rps", 0, "maximum page visits per second (0 = unlimited)")
	fs.Float64("jitter", 0, "random spread applied to --rps spacing, 0 to 1")
	fs.String("audit", "", "record visits to an audit store (e.g. visits.db, visits.csv, postgres://...)")
	fs.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 = off)")
	fs.String("report-format", string(report.FormatText), "summary format: text, json or html")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("log-output", "stderr", "log destination: stderr, stdout or a file")
}

// NewViper returns a viper instance bound to fs and the environment.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load resolves the configuration. args are the positional arguments; the
// first one, if any, is the search query.
func Load(v *viper.Viper, args []string) (Config, error) {
	variant, err := qa.ParseVariant(v.GetString("variant"))
	if err != nil {
		return Config{}, err
	}
	cfg := Defaults(variant)

	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		cfg.Query = args[0]
	}

	setString(v, "engine", (*string)(&cfg.Engine))
	setString(v, "output", &cfg.Output)
	setString(v, "sheet", &cfg.Sheet)
	setString(v, "search-url", &cfg.SearchURL)
	setString(v, "remote-url", &cfg.RemoteURL)
	setString(v, "chrome-path", &cfg.ChromePath)
	setString(v, "user-agent", &cfg.UserAgent)
	setString(v, "fingerprint", (*string)(&cfg.Fingerprint))
	setString(v, "audit", &cfg.Audit)
	setString(v, "log-level", &cfg.LogLevel)
	setString(v, "log-format", &cfg.LogFormat)
	setString(v, "log-output", &cfg.LogOutput)

	if v.IsSet("max-urls") {
		cfg.MaxURLs = v.GetInt("max-urls")
	}
	if v.IsSet("max-pages") {
		cfg.MaxPages = v.GetInt("max-pages")
	}
	if v.IsSet("nav-timeout") {
		cfg.NavTimeout = v.GetDuration("nav-timeout")
	}
	if v.IsSet("settle") {
		cfg.Settle = v.GetDuration("settle")
	}
	if v.IsSet("search-settle") {
		cfg.SearchSettle = v.GetDuration("search-settle")
	}
	if v.IsSet("headless") {
		cfg.Headless = v.GetBool("headless")
	}
	if v.IsSet("respect-robots") {
		cfg.RespectRobots = v.GetBool("respect-robots")
	}
	if v.IsSet("rps") {
		cfg.RPS = v.GetFloat64("rps")
	}
	if v.IsSet("jitter") {
		cfg.Jitter = v.GetFloat64("jitter")
	}
	if v.IsSet("metrics-port") {
		cfg.MetricsPort = v.GetInt("metrics-port")
	}
	if v.IsSet("report-format") {
		f, err := report.ParseFormat(v.GetString("report-format"))
		if err != nil {
			return Config{}, err
		}
		cfg.ReportFormat = f
	}

	return cfg, cfg.Validate()
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
}

// Validate rejects settings a run cannot work with.
func (c Config) Validate() error {
	var errs []error

	if _, err := qa.ParseVariant(string(c.Variant)); err != nil {
		errs = append(errs, err)
	}
	if c.Engine != EngineChrome && c.Engine != EngineHTTP {
		errs = append(errs, fmt.Errorf("unknown engine %q (want chrome or http)", c.Engine))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	if c.MaxURLs < 0 {
		errs = append(errs, fmt.Errorf("max-urls must not be negative, got %d", c.MaxURLs))
	}
	if c.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("max-pages must be at least 1, got %d", c.MaxPages))
	}
	if c.NavTimeout <= 0 {
		errs = append(errs, fmt.Errorf("nav-timeout must be positive, got %v", c.NavTimeout))
	}
	if c.Settle < 0 {
		errs = append(errs, fmt.Errorf("settle must not be negative, got %v", c.Settle))
	}
	if c.SearchSettle < 0 {
		errs = append(errs, fmt.Errorf("search-settle must not be negative, got %v", c.SearchSettle))
	}
	if c.RPS < 0 {
		errs = append(errs, fmt.Errorf("rps must not be negative, got %v", c.RPS))
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		errs = append(errs, fmt.Errorf("jitter must be between 0 and 1, got %v", c.Jitter))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics-port out of range: %d", c.MetricsPort))
	}
	if _, err := httpclient.Transport(c.Fingerprint, false); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat))
	}

	return errors.Join(errs...)
}
