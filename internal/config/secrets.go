package config

import "slices"

const redacted = "***"

// RedactedConfig returns a copy of cfg that is safe to log: secrets are
// masked and slices are copied.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Kalshi.ApiKey)
	redact(&out.Supabase.DSN)
	redact(&out.Supabase.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	out.Scan.KalshiSeries = slices.Clone(cfg.Scan.KalshiSeries)
	out.Scan.PolymarketFeeds = slices.Clone(cfg.Scan.PolymarketFeeds)
	out.Server.CORSOrigins = slices.Clone(cfg.Server.CORSOrigins)
	out.Notify.Events = slices.Clone(cfg.Notify.Events)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
