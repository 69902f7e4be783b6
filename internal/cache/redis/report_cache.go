package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var _ domain.ReportCache = (*ReportCache)(nil)

// ReportCache stores the latest scan report as JSON under "report:latest".
type ReportCache struct {
	c   *Client
	ttl time.Duration
}

// NewReportCache creates a ReportCache. A ttl of zero keeps the report until
// the next scan replaces it.
func NewReportCache(c *Client, ttl time.Duration) *ReportCache {
	return &ReportCache{c: c, ttl: ttl}
}

// SetLatest replaces the latest report.
func (rc *ReportCache) SetLatest(ctx context.Context, report domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report %s: %w", report.ID, err)
	}
	if err := rc.c.rdb.Set(ctx, rc.c.key("report", "latest"), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set report %s: %w", report.ID, err)
	}
	return nil
}

// GetLatest returns the latest report, or domain.ErrNotFound when none is
// stored or it expired.
func (rc *ReportCache) GetLatest(ctx context.Context) (domain.Report, error) {
	data, err := rc.c.rdb.Get(ctx, rc.c.key("report", "latest")).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Report{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("redis: get report: %w", err)
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.Report{}, fmt.Errorf("redis: decode report: %w", err)
	}
	return report, nil
}
