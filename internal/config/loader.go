package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CROSSARB_"

// Load builds the configuration from the defaults, the TOML file at path (if
// path is not empty), a .env file in the working directory (if present) and
// CROSSARB_* variables, in that order. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Kalshi.BaseURL, "KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKey, "KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "KALSHI_RSA_PRIVATE_KEY_PATH")
	setDuration(&cfg.Kalshi.Timeout, "KALSHI_TIMEOUT")
	setInt(&cfg.Kalshi.RateLimit, "KALSHI_RATE_LIMIT")

	setStr(&cfg.Polymarket.GammaHost, "POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "POLYMARKET_CLOB_HOST")
	setDuration(&cfg.Polymarket.Timeout, "POLYMARKET_TIMEOUT")
	setDuration(&cfg.Polymarket.QuoteTimeout, "POLYMARKET_QUOTE_TIMEOUT")
	setInt(&cfg.Polymarket.RateLimit, "POLYMARKET_RATE_LIMIT")

	setInt(&cfg.Matcher.DateToleranceDays, "MATCHER_DATE_TOLERANCE_DAYS")
	setFloat64(&cfg.Matcher.ScoreThreshold, "MATCHER_SCORE_THRESHOLD")
	setFloat64(&cfg.Matcher.ConfidenceFloor, "MATCHER_CONFIDENCE_FLOOR")
	setFloat64(&cfg.Matcher.CostCeiling, "MATCHER_COST_CEILING")

	setInt(&cfg.Scan.KalshiWorkers, "SCAN_KALSHI_WORKERS")
	setInt(&cfg.Scan.PolymarketWorkers, "SCAN_POLYMARKET_WORKERS")
	setInt(&cfg.Scan.RefineWorkers, "SCAN_REFINE_WORKERS")
	setInt(&cfg.Scan.RequestAttempts, "SCAN_REQUEST_ATTEMPTS")
	setDuration(&cfg.Scan.RetryBackoff, "SCAN_RETRY_BACKOFF")
	setDuration(&cfg.Scan.ProfitablePause, "SCAN_PROFITABLE_PAUSE")
	setDuration(&cfg.Scan.IdlePause, "SCAN_IDLE_PAUSE")
	setDuration(&cfg.Scan.ErrorPause, "SCAN_ERROR_PAUSE")
	setDuration(&cfg.Scan.LockTTL, "SCAN_LOCK_TTL")
	setDuration(&cfg.Scan.ReportTTL, "SCAN_REPORT_TTL")
	setDuration(&cfg.Scan.QuoteTTL, "SCAN_QUOTE_TTL")
	setDuration(&cfg.Scan.EasternOffset, "SCAN_EASTERN_OFFSET")
	setStringSlice(&cfg.Scan.KalshiSeries, "SCAN_KALSHI_SERIES")
	setBool(&cfg.Scan.Snapshots, "SCAN_SNAPSHOTS")
	setBool(&cfg.Scan.History, "SCAN_HISTORY")

	setStr(&cfg.Aliases.File, "ALIASES_FILE")
	setBool(&cfg.Aliases.UsePostgres, "ALIASES_USE_POSTGRES")
	setStr(&cfg.Aliases.S3Key, "ALIASES_S3_KEY")

	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "REDIS_KEY_PREFIX")

	setBool(&cfg.Supabase.Enabled, "SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "DATABASE_URL")
	setStr(&cfg.Supabase.Host, "SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "SUPABASE_RUN_MIGRATIONS")

	setBool(&cfg.S3.Enabled, "S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "S3_PREFIX")

	setInt(&cfg.Server.Port, "SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SERVER_RATE_WINDOW")

	setStr(&cfg.Notify.TelegramAPIURL, "NOTIFY_TELEGRAM_API_URL")
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")

	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

// Each setter only touches dst when CROSSARB_<key> is set and parses.

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func setStr(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
