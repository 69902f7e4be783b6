package acquisition

import (
	"context"
	"errors"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// RetryPolicy controls how a single venue request is retried.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration
}

// DefaultRetryPolicy returns three attempts with 0.5s, 1s pauses between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}
}

// Do calls fn until it succeeds, fails with a non-retryable error, or runs
// out of attempts. It returns the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !Retryable(err) {
			return err
		}

		t := time.NewTimer(p.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
	return err
}

// Retryable reports whether err is worth another attempt: transport failures,
// 5xx responses and rate limiting. Context cancellation never is.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, domain.ErrRateLimited)
}
