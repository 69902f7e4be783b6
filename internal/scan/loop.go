package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/crossarb/internal/notify"
)

// RunLoop scans until ctx ends. It pauses ProfitablePause after a scan with
// opportunities, IdlePause after one without, and ErrorPause after a failure
// (which is also alerted as scan_failed) or a skipped scan. Trigger cuts a
// pause short.
func (s *Scanner) RunLoop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scan loop started",
		slog.Duration("profitable_pause", s.cfg.ProfitablePause),
		slog.Duration("idle_pause", s.cfg.IdlePause),
		slog.Duration("error_pause", s.cfg.ErrorPause),
	)
	for {
		rep, err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "scan loop stopped")
			return ctx.Err()
		}

		var pause time.Duration
		switch {
		case errors.Is(err, ErrSkipped):
			s.logger.InfoContext(ctx, "scan skipped, lock held elsewhere")
			pause = s.cfg.ErrorPause
		case err != nil:
			alert := notify.Alert{
				Event: notify.EventScanFailed,
				Title: "Arbitrage scan failed",
				Body:  err.Error(),
			}
			if nerr := s.deps.Notifier.Notify(ctx, alert); nerr != nil {
				s.logger.WarnContext(ctx, "failure alert failed", slog.String("error", nerr.Error()))
			}
			pause = s.cfg.ErrorPause
		case rep.Counts.Profitable > 0:
			pause = s.cfg.ProfitablePause
		default:
			pause = s.cfg.IdlePause
		}

		if err := s.wait(ctx, pause); err != nil {
			s.logger.InfoContext(ctx, "scan loop stopped")
			return err
		}
	}
}

// wait sleeps for d, returning early on Trigger or with ctx's error.
func (s *Scanner) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.trigger:
		s.logger.InfoContext(ctx, "scan triggered")
		return nil
	case <-timer.C:
		return nil
	}
}
