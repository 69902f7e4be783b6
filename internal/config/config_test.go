package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crossarb.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Matcher.DateToleranceDays)
	assert.Equal(t, 0.50, cfg.Matcher.ScoreThreshold)
	assert.Equal(t, 0.67, cfg.Matcher.ConfidenceFloor)
	assert.Equal(t, 0.99, cfg.Matcher.CostCeiling)
	assert.Equal(t, 5*time.Hour, cfg.Scan.EasternOffset.Duration)
	assert.Len(t, cfg.Scan.PolymarketFeeds, 18)
	assert.True(t, cfg.ServesHTTP())
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
mode = "scan"
log_level = "debug"

[matcher]
cost_ceiling = 0.97

[scan]
retry_backoff = "250ms"
kalshi_series = ["KXNBAGAME"]

[[scan.polymarket_feeds]]
league = "NBA"
tag_slug = "nba"

[redis]
enabled = true
`)
	t.Setenv("CROSSARB_MATCHER_SCORE_THRESHOLD", "0.6")
	t.Setenv("CROSSARB_SCAN_PROFITABLE_PAUSE", "30s")
	t.Setenv("CROSSARB_SERVER_CORS_ORIGINS", " https://a.example.com , ,https://b.example.com")
	t.Setenv("CROSSARB_SCAN_REFINE_WORKERS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 0.97, cfg.Matcher.CostCeiling)
	assert.Equal(t, 0.6, cfg.Matcher.ScoreThreshold)
	assert.Equal(t, 0.67, cfg.Matcher.ConfidenceFloor, "unset keys keep their default")
	assert.Equal(t, 250*time.Millisecond, cfg.Scan.RetryBackoff.Duration)
	assert.Equal(t, 30*time.Second, cfg.Scan.ProfitablePause.Duration)
	assert.Equal(t, 10, cfg.Scan.RefineWorkers, "unparseable overrides are ignored")
	assert.Equal(t, []string{"KXNBAGAME"}, cfg.Scan.KalshiSeries)
	require.Len(t, cfg.Scan.PolymarketFeeds, 1)
	assert.Equal(t, "tag:nba", cfg.Scan.PolymarketFeeds[0].String())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "[matcher]\nscore_treshold = 0.4\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matcher.score_treshold")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mode = "trade" }, `unknown mode "trade"`},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log_level"},
		{"rsa without key id", func(c *Config) { c.Kalshi.RsaPrivateKeyPath = "/k.pem" }, "kalshi: api_key is required"},
		{"threshold", func(c *Config) { c.Matcher.ScoreThreshold = 1 }, "matcher: score_threshold"},
		{"negative tolerance", func(c *Config) { c.Matcher.DateToleranceDays = -1 }, "date_tolerance_days"},
		{"workers", func(c *Config) { c.Scan.RefineWorkers = 0 }, "refine_workers"},
		{"feed", func(c *Config) { c.Scan.PolymarketFeeds[0].SeriesID = "1" }, "polymarket_feeds[0]"},
		{"server needs redis", func(c *Config) { c.Mode = "server" }, "redis: must be enabled for mode server"},
		{"postgres aliases", func(c *Config) { c.Aliases.UsePostgres = true }, "aliases: use_postgres requires supabase.enabled"},
		{"s3 aliases", func(c *Config) { c.Aliases.S3Key = "aliases.json" }, "aliases: s3_key requires s3.enabled"},
		{"seed", func(c *Config) { c.Mode = "seed-aliases" }, "aliases: file is required"},
		{"telegram pair", func(c *Config) { c.Notify.TelegramToken = "t" }, "telegram_token and telegram_chat_id"},
		{"event", func(c *Config) { c.Notify.Events = []string{"order_filled"} }, `unknown event "order_filled"`},
		{"rate window", func(c *Config) { c.Kalshi.RateLimit = 10; c.Kalshi.RateWindow.Duration = 0 }, "kalshi: rate_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Defaults()
	cfg.Mode = " ONCE "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "once", cfg.Mode)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Supabase.Password = "pg-secret"
	cfg.Server.APIKey = "api-secret"
	cfg.Notify.TelegramToken = "tg-secret"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Supabase.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Redis.Password, "empty secrets stay empty")
	assert.Equal(t, "pg-secret", cfg.Supabase.Password)

	out.Server.CORSOrigins[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Server.CORSOrigins[0])
}
