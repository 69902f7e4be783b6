package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	s3blob "github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/cache/redis"
	"github.com/alanyoungcy/crossarb/internal/config"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/platform/kalshi"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
	"github.com/alanyoungcy/crossarb/internal/store/postgres"
)

// Dependencies holds every external client and adapter the modes use.
// Optional backends are nil when disabled in the configuration.
type Dependencies struct {
	Kalshi *kalshi.Client
	Gamma  *polymarket.GammaClient
	Clob   *polymarket.ClobClient // nil when refinement is off

	Redis   *redis.Client
	Reports domain.ReportCache
	Quotes  domain.QuoteCache
	Limiter domain.RateLimiter
	Lock    domain.LockManager
	Bus     domain.SignalBus

	Postgres *postgres.Client
	Aliases  *postgres.AliasStore
	History  domain.ScanStore

	S3         *s3blob.Client
	BlobReader domain.BlobReader
	BlobWriter domain.BlobWriter

	Notifier *notify.Notifier
}

// Wire builds the dependencies for cfg. The cleanup function releases them in
// reverse order and must be called once the modes have returned.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	deps.Kalshi = kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey, cfg.Kalshi.Timeout.Duration)
	if cfg.Kalshi.RsaPrivateKeyPath != "" {
		pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			return fail(fmt.Errorf("wire: kalshi key: %w", err))
		}
		if err := deps.Kalshi.SetRSAPrivateKey(pemBytes); err != nil {
			return fail(fmt.Errorf("wire: kalshi key: %w", err))
		}
	}
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, cfg.Polymarket.Timeout.Duration)
	if cfg.Polymarket.ClobHost != "" {
		deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, cfg.Polymarket.QuoteTimeout.Duration)
	}

	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.Redis = rc
		deps.Reports = redis.NewReportCache(rc, cfg.Scan.ReportTTL.Duration)
		deps.Quotes = redis.NewQuoteCache(rc, cfg.Scan.QuoteTTL.Duration)
		deps.Limiter = redis.NewRateLimiter(rc)
		deps.Lock = redis.NewLockManager(rc)
		deps.Bus = redis.NewSignalBus(rc)
	}

	if cfg.Supabase.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)

		if cfg.Supabase.RunMigrations {
			applied, err := pg.RunMigrations(ctx)
			if err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
			logger.InfoContext(ctx, "postgres migrations applied", slog.Int("count", applied))
		}

		deps.Postgres = pg
		deps.Aliases = postgres.NewAliasStore(pg.Pool())
		if cfg.Scan.History {
			deps.History = postgres.NewScanStore(pg.Pool())
		}
	}

	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.S3 = sc
		deps.BlobReader = s3blob.NewReader(sc)
		if cfg.Scan.Snapshots {
			deps.BlobWriter = s3blob.NewWriter(sc, int64(cfg.S3.PartSizeMB)<<20)
		}
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramAPIURL, cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
