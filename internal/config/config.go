// Package config defines the crossarb configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/acquisition"
)

// Config is the root configuration. Values come from the defaults, then a
// TOML file, then CROSSARB_* environment variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Scan       ScanConfig       `toml:"scan"`
	Aliases    AliasesConfig    `toml:"aliases"`
	Redis      RedisConfig      `toml:"redis"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// KalshiConfig holds the Kalshi API settings. Requests are signed only when
// both the key id and the RSA key are set.
type KalshiConfig struct {
	BaseURL           string   `toml:"base_url"`
	ApiKey            string   `toml:"api_key"`
	RsaPrivateKeyPath string   `toml:"rsa_private_key_path"`
	Timeout           duration `toml:"timeout"`
	// RateLimit caps requests per RateWindow across every process sharing
	// the Redis instance. 0 disables it.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// PolymarketConfig holds the Gamma and CLOB endpoints. An empty ClobHost
// turns price refinement off.
type PolymarketConfig struct {
	GammaHost    string   `toml:"gamma_host"`
	ClobHost     string   `toml:"clob_host"`
	Timeout      duration `toml:"timeout"`
	QuoteTimeout duration `toml:"quote_timeout"`
	RateLimit    int      `toml:"rate_limit"`
	RateWindow   duration `toml:"rate_window"`
}

// MatcherConfig holds the matching and report thresholds.
type MatcherConfig struct {
	DateToleranceDays int     `toml:"date_tolerance_days"`
	ScoreThreshold    float64 `toml:"score_threshold"`
	ConfidenceFloor   float64 `toml:"confidence_floor"`
	CostCeiling       float64 `toml:"cost_ceiling"`
}

// ScanConfig holds acquisition fan-out, retry and loop pacing.
type ScanConfig struct {
	KalshiWorkers     int      `toml:"kalshi_workers"`
	PolymarketWorkers int      `toml:"polymarket_workers"`
	RefineWorkers     int      `toml:"refine_workers"`
	RequestAttempts   int      `toml:"request_attempts"`
	RetryBackoff      duration `toml:"retry_backoff"`
	ProfitablePause   duration `toml:"profitable_pause"`
	IdlePause         duration `toml:"idle_pause"`
	ErrorPause        duration `toml:"error_pause"`
	LockTTL           duration `toml:"lock_ttl"`
	ReportTTL         duration `toml:"report_ttl"`
	QuoteTTL          duration `toml:"quote_ttl"`
	// EasternOffset shifts Polymarket end times back to the game's day.
	EasternOffset   duration                     `toml:"eastern_offset"`
	KalshiSeries    []string                     `toml:"kalshi_series"`
	PolymarketFeeds []acquisition.PolymarketFeed `toml:"polymarket_feeds"`
	// Snapshots archives every report to S3 when s3 is enabled.
	Snapshots bool `toml:"snapshots"`
	// History records every scan in Postgres when supabase is enabled.
	History bool `toml:"history"`
}

// AliasesConfig selects the alias-table override sources.
type AliasesConfig struct {
	File        string `toml:"file"`
	UsePostgres bool   `toml:"use_postgres"`
	S3Key       string `toml:"s3_key"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// SupabaseConfig holds the PostgreSQL connection settings.
type SupabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds the S3-compatible object storage settings.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
	PartSizeMB     int    `toml:"part_size_mb"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds the alert channels.
type NotifyConfig struct {
	TelegramAPIURL    string   `toml:"telegram_api_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration decodes TOML strings such as "5m" or "500ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:    "https://api.elections.kalshi.com/trade-api/v2",
			Timeout:    duration{15 * time.Second},
			RateWindow: duration{time.Second},
		},
		Polymarket: PolymarketConfig{
			GammaHost:    "https://gamma-api.polymarket.com",
			ClobHost:     "https://clob.polymarket.com",
			Timeout:      duration{15 * time.Second},
			QuoteTimeout: duration{5 * time.Second},
			RateWindow:   duration{time.Second},
		},
		Matcher: MatcherConfig{
			DateToleranceDays: 1,
			ScoreThreshold:    0.50,
			ConfidenceFloor:   0.67,
			CostCeiling:       0.99,
		},
		Scan: ScanConfig{
			KalshiWorkers:     5,
			PolymarketWorkers: 8,
			RefineWorkers:     10,
			RequestAttempts:   3,
			RetryBackoff:      duration{500 * time.Millisecond},
			ProfitablePause:   duration{10 * time.Second},
			IdlePause:         duration{0},
			ErrorPause:        duration{5 * time.Second},
			LockTTL:           duration{2 * time.Minute},
			ReportTTL:         duration{10 * time.Minute},
			QuoteTTL:          duration{5 * time.Second},
			EasternOffset:     duration{5 * time.Hour},
			KalshiSeries:      append([]string(nil), acquisition.DefaultKalshiSeries...),
			PolymarketFeeds:   acquisition.DefaultPolymarketFeeds(),
			Snapshots:         true,
			History:           true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "crossarb:",
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb",
			ForcePathStyle: true,
			PartSizeMB:     5,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			TelegramAPIURL: "https://api.telegram.org",
			Events:         []string{"arb_detected", "scan_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"once":         true,
	"scan":         true,
	"server":       true,
	"full":         true,
	"seed-aliases": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validEvents = map[string]bool{
	"arb_detected": true,
	"scan_failed":  true,
}

// ServesHTTP reports whether the mode runs the HTTP surface.
func (c *Config) ServesHTTP() bool {
	return c.Mode == "server" || c.Mode == "full"
}

// Validate returns one error listing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if !validModes[c.Mode] {
		add("unknown mode %q (valid: once, scan, server, full, seed-aliases)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.Kalshi.BaseURL == "" {
		add("kalshi: base_url must not be empty")
	}
	if c.Kalshi.RsaPrivateKeyPath != "" && c.Kalshi.ApiKey == "" {
		add("kalshi: api_key is required when rsa_private_key_path is set")
	}
	if c.Polymarket.GammaHost == "" {
		add("polymarket: gamma_host must not be empty")
	}
	for _, rl := range []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"kalshi", c.Kalshi.RateLimit, c.Kalshi.RateWindow.Duration},
		{"polymarket", c.Polymarket.RateLimit, c.Polymarket.RateWindow.Duration},
		{"server", c.Server.RateLimit, c.Server.RateWindow.Duration},
	} {
		if rl.limit < 0 {
			add("%s: rate_limit must be >= 0", rl.name)
		}
		if rl.limit > 0 && rl.window <= 0 {
			add("%s: rate_window must be > 0 when rate_limit is set", rl.name)
		}
	}

	m := c.Matcher
	if m.DateToleranceDays < 0 {
		add("matcher: date_tolerance_days must be >= 0")
	}
	if m.ScoreThreshold < 0 || m.ScoreThreshold >= 1 {
		add("matcher: score_threshold must be in [0, 1), got %v", m.ScoreThreshold)
	}
	if m.ConfidenceFloor < 0 || m.ConfidenceFloor >= 1 {
		add("matcher: confidence_floor must be in [0, 1), got %v", m.ConfidenceFloor)
	}
	if m.CostCeiling <= 0 || m.CostCeiling > 2 {
		add("matcher: cost_ceiling must be in (0, 2], got %v", m.CostCeiling)
	}

	s := c.Scan
	if s.KalshiWorkers < 1 || s.PolymarketWorkers < 1 || s.RefineWorkers < 1 {
		add("scan: kalshi_workers, polymarket_workers and refine_workers must be >= 1")
	}
	if s.RequestAttempts < 1 {
		add("scan: request_attempts must be >= 1")
	}
	if s.RetryBackoff.Duration < 0 || s.ProfitablePause.Duration < 0 || s.IdlePause.Duration < 0 || s.ErrorPause.Duration < 0 {
		add("scan: retry_backoff and pauses must not be negative")
	}
	if s.LockTTL.Duration <= 0 {
		add("scan: lock_ttl must be > 0")
	}
	if s.ReportTTL.Duration < 0 || s.QuoteTTL.Duration < 0 {
		add("scan: report_ttl and quote_ttl must not be negative")
	}
	for i, f := range s.PolymarketFeeds {
		if (f.TagSlug == "") == (f.SeriesID == "") {
			add("scan: polymarket_feeds[%d]: exactly one of tag_slug and series_id must be set", i)
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	} else if c.Mode == "server" {
		add("redis: must be enabled for mode server")
	}

	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				add("supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				add("supabase: port must be 1-65535, got %d", c.Supabase.Port)
			}
			if c.Supabase.Database == "" {
				add("supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			add("supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 || c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			add("supabase: pool_min_conns must be between 0 and pool_max_conns")
		}
	}
	if c.Aliases.UsePostgres && !c.Supabase.Enabled {
		add("aliases: use_postgres requires supabase.enabled")
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			add("s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
	}
	if c.Aliases.S3Key != "" && !c.S3.Enabled {
		add("aliases: s3_key requires s3.enabled")
	}

	if c.Mode == "seed-aliases" {
		if c.Aliases.File == "" {
			add("aliases: file is required for mode seed-aliases")
		}
		if !c.Supabase.Enabled {
			add("supabase: must be enabled for mode seed-aliases")
		}
	}

	if c.ServesHTTP() && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		add("server: port must be 1-65535, got %d", c.Server.Port)
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}
	for _, ev := range c.Notify.Events {
		if !validEvents[ev] {
			add("notify: unknown event %q (valid: arb_detected, scan_failed)", ev)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
