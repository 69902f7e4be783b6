package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var _ domain.QuoteCache = (*QuoteCache)(nil)

// QuoteCache keeps order book asks at "quote:{tokenID}" for a short TTL.
type QuoteCache struct {
	c   *Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{c: c, ttl: ttl}
}

// SetQuote stores price for tokenID.
func (qc *QuoteCache) SetQuote(ctx context.Context, tokenID string, price float64) error {
	v := strconv.FormatFloat(price, 'f', -1, 64)
	if err := qc.c.rdb.Set(ctx, qc.c.key("quote", tokenID), v, qc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", tokenID, err)
	}
	return nil
}

// GetQuote returns the cached ask, or domain.ErrNotFound.
func (qc *QuoteCache) GetQuote(ctx context.Context, tokenID string) (float64, error) {
	v, err := qc.c.rdb.Get(ctx, qc.c.key("quote", tokenID)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get quote %s: %w", tokenID, err)
	}
	return v, nil
}
