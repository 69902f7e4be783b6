package domain

import (
	"context"
	"time"
)

// ReportCache holds the most recent scan report.
type ReportCache interface {
	SetLatest(ctx context.Context, report Report) error
	GetLatest(ctx context.Context) (Report, error)
}

// QuoteCache remembers recent order book quotes by token id.
type QuoteCache interface {
	SetQuote(ctx context.Context, tokenID string, price float64) error
	GetQuote(ctx context.Context, tokenID string) (float64, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
