package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/acquisition"
	"github.com/alanyoungcy/crossarb/internal/aliases"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/report"
	"github.com/alanyoungcy/crossarb/internal/scan"
	"github.com/alanyoungcy/crossarb/internal/server"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

const shutdownTimeout = 5 * time.Second

// OnceMode runs a single scan and prints the report.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	sc, err := a.newScanner(ctx, deps)
	if err != nil {
		return err
	}
	rep, err := sc.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}
	_, err = io.WriteString(a.out, report.Text(rep, sc.Config().Report))
	return err
}

// ScanMode runs the scan loop until ctx is cancelled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	sc, err := a.newScanner(ctx, deps)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "starting scan mode")
	return sc.RunLoop(ctx)
}

// ServerMode serves the latest report written by a scanner running
// elsewhere. POST /api/scan is unavailable.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// FullMode runs the scan loop and the HTTP surface, with POST /api/scan
// waking the loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	sc, err := a.newScanner(ctx, deps)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sc.RunLoop(ctx) })
	a.startHTTPServer(ctx, g, deps, sc)
	return g.Wait()
}

// SeedAliasesMode copies the alias file into the Postgres alias tables.
func (a *App) SeedAliasesMode(ctx context.Context, deps *Dependencies) error {
	if deps.Aliases == nil {
		return errors.New("seed-aliases mode: postgres is not configured")
	}
	teams, leagues, err := aliases.Seed(ctx, a.cfg.Aliases.File, deps.Aliases)
	if err != nil {
		return fmt.Errorf("seed-aliases mode: %w", err)
	}
	a.logger.InfoContext(ctx, "alias tables seeded",
		slog.String("file", a.cfg.Aliases.File),
		slog.Int("teams", teams),
		slog.Int("leagues", leagues),
	)
	return nil
}

// newScanner loads the alias tables and builds both venue sources and the
// scanner around them.
func (a *App) newScanner(ctx context.Context, deps *Dependencies) (*scan.Scanner, error) {
	loaderCfg := aliases.LoaderConfig{
		File:   a.cfg.Aliases.File,
		Logger: a.logger,
	}
	if a.cfg.Aliases.UsePostgres && deps.Aliases != nil {
		loaderCfg.Store = deps.Aliases
	}
	if a.cfg.Aliases.S3Key != "" && deps.BlobReader != nil {
		loaderCfg.Blobs = deps.BlobReader
		loaderCfg.S3Key = a.cfg.Aliases.S3Key
	}
	tables, err := aliases.NewLoader(loaderCfg).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: alias tables: %w", err)
	}
	norm := matching.NewNormalizer(tables)

	sc := a.cfg.Scan
	retry := acquisition.RetryPolicy{Attempts: sc.RequestAttempts, Backoff: sc.RetryBackoff.Duration}

	kalshiSrc := acquisition.NewKalshiSource(deps.Kalshi, norm, acquisition.KalshiConfig{
		Series:  sc.KalshiSeries,
		Workers: sc.KalshiWorkers,
		Retry:   retry,
		Throttle: acquisition.NewThrottle(deps.Limiter, "ratelimit:kalshi",
			a.cfg.Kalshi.RateLimit, a.cfg.Kalshi.RateWindow.Duration, a.logger),
		Logger: a.logger,
	})
	polySrc := acquisition.NewPolymarketSource(deps.Gamma, norm, acquisition.PolymarketConfig{
		Feeds:         sc.PolymarketFeeds,
		Workers:       sc.PolymarketWorkers,
		Retry:         retry,
		EasternOffset: sc.EasternOffset.Duration,
		Throttle: acquisition.NewThrottle(deps.Limiter, "ratelimit:polymarket",
			a.cfg.Polymarket.RateLimit, a.cfg.Polymarket.RateWindow.Duration, a.logger),
		Logger: a.logger,
	})

	var quoter domain.Quoter
	if deps.Clob != nil {
		quoter = deps.Clob
		if deps.Quotes != nil {
			quoter = acquisition.NewCachedQuoter(deps.Clob, deps.Quotes, a.logger)
		}
	}

	scanCfg := scan.DefaultConfig()
	scanCfg.Matcher.DateTolerance = a.cfg.Matcher.DateToleranceDays
	scanCfg.Matcher.ScoreThreshold = a.cfg.Matcher.ScoreThreshold
	scanCfg.Report = matching.ReportOptions{
		ConfidenceFloor: a.cfg.Matcher.ConfidenceFloor,
		CostCeiling:     a.cfg.Matcher.CostCeiling,
	}
	scanCfg.RefineWorkers = sc.RefineWorkers
	scanCfg.QuoteTimeout = a.cfg.Polymarket.QuoteTimeout.Duration
	scanCfg.LockTTL = sc.LockTTL.Duration
	scanCfg.ProfitablePause = sc.ProfitablePause.Duration
	scanCfg.IdlePause = sc.IdlePause.Duration
	scanCfg.ErrorPause = sc.ErrorPause.Duration

	scanner, err := scan.New(scanCfg, scan.Deps{
		Kalshi:     kalshiSrc,
		Polymarket: polySrc,
		Quoter:     quoter,
		Lock:       deps.Lock,
		Reports:    deps.Reports,
		Bus:        deps.Bus,
		Snapshots:  deps.BlobWriter,
		History:    deps.History,
		Notifier:   deps.Notifier,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return scanner, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// startHTTPServer adds the HTTP server, its shutdown and the websocket hub to
// g. trigger is nil when no scan loop runs in this process.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, trigger handler.Triggerer) {
	pingers := map[string]handler.Pinger{}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}
	if deps.Postgres != nil {
		pingers["postgres"] = pingFunc(deps.Postgres.Pool().Ping)
	}
	if deps.S3 != nil {
		pingers["s3"] = pingFunc(deps.S3.Health)
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger)
		g.Go(func() error { return hub.Run(ctx) })
	}

	opts := matching.ReportOptions{
		ConfidenceFloor: a.cfg.Matcher.ConfidenceFloor,
		CostCeiling:     a.cfg.Matcher.CostCeiling,
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(pingers),
		Report:    handler.NewReportHandler(deps.Reports, opts, a.logger),
		Scan:      handler.NewScanHandler(trigger, deps.History, a.logger),
		Snapshots: handler.NewSnapshotHandler(deps.BlobReader, a.logger),
	}, hub, deps.Limiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
