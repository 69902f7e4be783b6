package acquisition

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DefaultQuoteTimeout bounds each order book quote request when no timeout
// is configured.
const DefaultQuoteTimeout = 5 * time.Second

type quoteJob struct {
	event *domain.CanonicalEvent
	first bool
	token string
}

// RefinePrices replaces the mid prices of matched events with live asks from
// their order books. Every matched event carrying token ids gets one quote
// per side; a quote in (0,1) overwrites that side's price, anything else
// leaves it untouched. Quotes are applied in match order after all requests
// finish. Each request is bounded by timeout, or DefaultQuoteTimeout when it
// is not positive. It returns how many prices changed and how many were
// requested.
func RefinePrices(ctx context.Context, matches []domain.MatchRecord, quoter domain.Quoter, workers int, timeout time.Duration) (updated, requested int) {
	if quoter == nil {
		return 0, 0
	}
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}

	var jobs []quoteJob
	for _, m := range matches {
		for _, ev := range []*domain.CanonicalEvent{m.A, m.B} {
			if ev == nil {
				continue
			}
			if ev.TokenA != "" {
				jobs = append(jobs, quoteJob{event: ev, first: true, token: ev.TokenA})
			}
			if ev.TokenB != "" {
				jobs = append(jobs, quoteJob{event: ev, first: false, token: ev.TokenB})
			}
		}
	}
	if len(jobs) == 0 {
		return 0, 0
	}

	quotes, _ := fanOut(ctx, workers, len(jobs), func(ctx context.Context, i int) ([]float64, bool) {
		qctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		p, err := quoter.AskPrice(qctx, jobs[i].token)
		if err != nil || !domain.ValidPrice(p) {
			return nil, false
		}
		return []float64{p}, true
	})

	for i, q := range quotes {
		if len(q) == 0 {
			continue
		}
		j := jobs[i]
		if j.first {
			j.event.PriceA = q[0]
		} else {
			j.event.PriceB = q[0]
		}
		updated++
	}
	return updated, len(jobs)
}

// CachedQuoter serves quotes from a cache, falling through to the order book
// on a miss and remembering valid answers.
type CachedQuoter struct {
	inner  domain.Quoter
	cache  domain.QuoteCache
	logger *slog.Logger
}

var _ domain.Quoter = (*CachedQuoter)(nil)

// NewCachedQuoter wraps inner. A nil cache returns inner unchanged.
func NewCachedQuoter(inner domain.Quoter, cache domain.QuoteCache, logger *slog.Logger) domain.Quoter {
	if cache == nil {
		return inner
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedQuoter{inner: inner, cache: cache, logger: logger.With(slog.String("component", "quote_cache"))}
}

// AskPrice implements domain.Quoter.
func (q *CachedQuoter) AskPrice(ctx context.Context, tokenID string) (float64, error) {
	if p, err := q.cache.GetQuote(ctx, tokenID); err == nil && domain.ValidPrice(p) {
		return p, nil
	}

	p, err := q.inner.AskPrice(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	if domain.ValidPrice(p) {
		if err := q.cache.SetQuote(ctx, tokenID, p); err != nil {
			q.logger.WarnContext(ctx, "quote cache write failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}
