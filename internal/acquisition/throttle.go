package acquisition

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Throttle gates outbound requests to one venue through a shared
// sliding-window limiter. A nil Throttle never blocks.
type Throttle struct {
	limiter domain.RateLimiter
	key     string
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

// NewThrottle allows limit requests per window under key. It returns nil when
// limiter is nil or limit is not positive.
func NewThrottle(limiter domain.RateLimiter, key string, limit int, window time.Duration, logger *slog.Logger) *Throttle {
	if limiter == nil || limit <= 0 || window <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttle{limiter: limiter, key: key, limit: limit, window: window, logger: logger}
}

// Wait blocks until the request may proceed. Limiter failures are logged and
// let the request through; only context cancellation is returned.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx, t.key, t.limit, t.window); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.logger.WarnContext(ctx, "rate limiter unavailable, proceeding",
			slog.String("key", t.key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
