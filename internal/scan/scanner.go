// Package scan runs the end-to-end arbitrage scan: acquire both venues,
// match, refine prices, screen, then publish the report.
package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/acquisition"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/report"
)

// ErrSkipped is returned by RunOnce when another scan holds the lock.
var ErrSkipped = errors.New("scan skipped: another scan is running")

// Scan states published on domain.ChannelStatus.
const (
	StateStarted   = "started"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateSkipped   = "skipped"
)

// Config holds the scan thresholds and pacing.
type Config struct {
	Matcher       matching.Options
	Report        matching.ReportOptions
	RefineWorkers int
	QuoteTimeout  time.Duration

	LockKey string
	LockTTL time.Duration

	// Pause after a scan that found opportunities, found none, or failed.
	ProfitablePause time.Duration
	IdlePause       time.Duration
	ErrorPause      time.Duration
}

// DefaultConfig returns the standard scan settings.
func DefaultConfig() Config {
	return Config{
		Matcher:         matching.DefaultOptions(),
		Report:          matching.DefaultReportOptions(),
		RefineWorkers:   10,
		QuoteTimeout:    acquisition.DefaultQuoteTimeout,
		LockKey:         "scan",
		LockTTL:         2 * time.Minute,
		ProfitablePause: 10 * time.Second,
		IdlePause:       0,
		ErrorPause:      5 * time.Second,
	}
}

// Deps are the scanner's collaborators. Kalshi and Polymarket are required;
// every other field is optional and skipped when nil.
type Deps struct {
	Kalshi     acquisition.Source
	Polymarket acquisition.Source
	Quoter     domain.Quoter

	Lock      domain.LockManager
	Reports   domain.ReportCache
	Bus       domain.SignalBus
	Snapshots domain.BlobWriter
	History   domain.ScanStore
	Notifier  *notify.Notifier

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Scanner runs scans one at a time.
type Scanner struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	running sync.Mutex
	trigger chan struct{}
	scans   int
}

// New creates a Scanner.
func New(cfg Config, deps Deps) (*Scanner, error) {
	if deps.Kalshi == nil || deps.Polymarket == nil {
		return nil, fmt.Errorf("scan: both venue sources are required")
	}
	if deps.Kalshi.Venue() == deps.Polymarket.Venue() {
		return nil, fmt.Errorf("scan: sources must come from different venues, both are %s", deps.Kalshi.Venue())
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "scan"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	cfg.Matcher.Logger = deps.Logger

	return &Scanner{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger.With(slog.String("component", "scanner")),
		trigger: make(chan struct{}, 1),
	}, nil
}

// Config returns the effective configuration.
func (s *Scanner) Config() Config { return s.cfg }

// Trigger asks a running RunLoop to start the next scan without waiting out
// its pause. Requests made while one is already pending are coalesced; the
// result reports whether this call queued a new one.
func (s *Scanner) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce performs one scan and returns its report. It returns ErrSkipped
// when another scan, in this process or elsewhere, is running.
func (s *Scanner) RunOnce(ctx context.Context) (domain.Report, error) {
	if !s.running.TryLock() {
		return domain.Report{}, ErrSkipped
	}
	defer s.running.Unlock()

	if s.deps.Lock != nil {
		unlock, err := s.deps.Lock.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			s.publishStatus(ctx, domain.ScanStatus{State: StateSkipped})
			return domain.Report{}, fmt.Errorf("%w: %w", ErrSkipped, err)
		case err != nil:
			s.logger.WarnContext(ctx, "scan lock unavailable, scanning unlocked",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	s.scans++
	id := s.deps.NewID()
	started := s.deps.Now()
	logger := s.logger.With(slog.String("scan_id", id), slog.Int("scan", s.scans))
	logger.InfoContext(ctx, "scan started")
	s.publishStatus(ctx, domain.ScanStatus{ScanID: id, State: StateStarted})

	rep, err := s.scan(ctx, id, started)
	if err != nil {
		logger.ErrorContext(ctx, "scan failed",
			slog.Duration("elapsed", s.deps.Now().Sub(started)),
			slog.String("error", err.Error()),
		)
		s.publishStatus(ctx, domain.ScanStatus{ScanID: id, State: StateFailed, Error: err.Error()})
		s.recordHistory(ctx, domain.ScanRun{
			ID:        id,
			StartedAt: started,
			Duration:  s.deps.Now().Sub(started),
			Error:     err.Error(),
		})
		return domain.Report{}, err
	}

	s.publish(ctx, rep)

	attrs := []any{
		slog.Duration("elapsed", rep.Duration),
		slog.Int("kalshi_events", rep.Counts.EventsA),
		slog.Int("polymarket_events", rep.Counts.EventsB),
		slog.Int("matched", rep.Counts.Matched),
		slog.Int("high_confidence", rep.Counts.HighConfidence),
		slog.Int("profitable", rep.Counts.Profitable),
	}
	if rep.Counts.Profitable > 0 {
		attrs = append(attrs, slog.String("report", report.Text(rep, s.cfg.Report)))
	}
	logger.InfoContext(ctx, "scan completed", attrs...)

	if rep.Counts.Profitable > 0 {
		alert := notify.Alert{
			Event: notify.EventArbDetected,
			Title: report.AlertTitle(rep.Counts.Profitable),
			Body:  report.AlertBody(rep.Opportunities),
		}
		if err := s.deps.Notifier.Notify(ctx, alert); err != nil {
			logger.WarnContext(ctx, "arbitrage alert failed", slog.String("error", err.Error()))
		}
	}
	return rep, nil
}

// scan does the work of RunOnce between bookkeeping.
func (s *Scanner) scan(ctx context.Context, id string, started time.Time) (domain.Report, error) {
	var eventsA, eventsB []domain.CanonicalEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		eventsA, err = s.deps.Kalshi.Fetch(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		eventsB, err = s.deps.Polymarket.Fetch(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Report{}, fmt.Errorf("scan: acquire: %w", err)
	}

	matches, err := matching.Match(eventsA, eventsB, s.cfg.Matcher)
	if err != nil {
		return domain.Report{}, fmt.Errorf("scan: match: %w", err)
	}

	var refined, queried int
	if s.deps.Quoter != nil {
		refined, queried = acquisition.RefinePrices(ctx, matches, s.deps.Quoter, s.cfg.RefineWorkers, s.cfg.QuoteTimeout)
	}
	if err := ctx.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("scan: %w", err)
	}

	screened := matching.Screen(matches, s.cfg.Report)
	opps := make([]domain.OpportunitySummary, len(screened.Profitable))
	for i, o := range screened.Profitable {
		opps[i] = domain.Summarize(o)
	}

	return domain.Report{
		ID:        id,
		StartedAt: started.UTC(),
		Duration:  s.deps.Now().Sub(started),
		Counts: domain.ReportCounts{
			EventsA:        len(eventsA),
			EventsB:        len(eventsB),
			Matched:        screened.Total,
			HighConfidence: screened.HighConfidence,
			Profitable:     len(opps),
			PricesRefined:  refined,
			PricesQueried:  queried,
		},
		Opportunities: opps,
	}, nil
}

// publish pushes a finished report to every configured sink. Sink failures
// are logged and do not fail the scan.
func (s *Scanner) publish(ctx context.Context, rep domain.Report) {
	warn := func(msg string, err error) {
		s.logger.WarnContext(ctx, msg,
			slog.String("scan_id", rep.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.deps.Reports != nil {
		if err := s.deps.Reports.SetLatest(ctx, rep); err != nil {
			warn("latest report not cached", err)
		}
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		warn("report encoding failed", err)
		return
	}
	if s.deps.Bus != nil {
		if err := s.deps.Bus.Publish(ctx, domain.ChannelArb, payload); err != nil {
			warn("report not published", err)
		}
	}
	if s.deps.Snapshots != nil {
		path := SnapshotPath(rep.ID, rep.StartedAt)
		if err := s.deps.Snapshots.Put(ctx, path, bytes.NewReader(payload), "application/json"); err != nil {
			warn("report snapshot not stored", err)
		}
	}

	run := domain.ScanRun{
		ID:        rep.ID,
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
		Counts:    rep.Counts,
	}
	if len(rep.Opportunities) > 0 {
		best := rep.Opportunities[0].Cost
		for _, o := range rep.Opportunities[1:] {
			best = min(best, o.Cost)
		}
		run.BestCost = &best
	}
	s.recordHistory(ctx, run)
	s.publishStatus(ctx, domain.ScanStatus{ScanID: rep.ID, State: StateCompleted})
}

func (s *Scanner) recordHistory(ctx context.Context, run domain.ScanRun) {
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.RecordScan(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "scan history not recorded",
			slog.String("scan_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scanner) publishStatus(ctx context.Context, st domain.ScanStatus) {
	if s.deps.Bus == nil {
		return
	}
	payload, _ := json.Marshal(st)
	if err := s.deps.Bus.Publish(ctx, domain.ChannelStatus, payload); err != nil {
		s.logger.DebugContext(ctx, "status not published",
			slog.String("state", st.State),
			slog.String("error", err.Error()),
		)
	}
}

// SnapshotPath is where a report is archived in object storage.
func SnapshotPath(id string, started time.Time) string {
	return SnapshotPrefix(started) + id + ".json"
}

// SnapshotPrefix is the object prefix shared by every snapshot of one UTC day.
func SnapshotPrefix(day time.Time) string {
	return day.UTC().Format("reports/2006/01/02/")
}
