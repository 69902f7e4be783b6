package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var _ domain.ScanStore = (*ScanStore)(nil)

// ScanStore persists scan summaries in scan_runs.
type ScanStore struct {
	pool *pgxpool.Pool
}

// NewScanStore creates a ScanStore.
func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

// RecordScan inserts one run. Re-recording an id overwrites it.
func (s *ScanStore) RecordScan(ctx context.Context, run domain.ScanRun) error {
	const query = `
		INSERT INTO scan_runs (id, started_at, duration_ms, kalshi_events, polymarket_events,
			matched, high_confidence, profitable, best_cost, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		ON CONFLICT (id) DO UPDATE SET
			duration_ms = EXCLUDED.duration_ms,
			kalshi_events = EXCLUDED.kalshi_events,
			polymarket_events = EXCLUDED.polymarket_events,
			matched = EXCLUDED.matched,
			high_confidence = EXCLUDED.high_confidence,
			profitable = EXCLUDED.profitable,
			best_cost = EXCLUDED.best_cost,
			error = EXCLUDED.error`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.StartedAt, run.Duration.Milliseconds(),
		run.Counts.EventsA, run.Counts.EventsB, run.Counts.Matched,
		run.Counts.HighConfidence, run.Counts.Profitable,
		run.BestCost, run.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: record scan %s: %w", run.ID, err)
	}
	return nil
}

// ListScans returns the most recent runs, newest first.
func (s *ScanStore) ListScans(ctx context.Context, limit int) ([]domain.ScanRun, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, started_at, duration_ms, kalshi_events, polymarket_events,
			matched, high_confidence, profitable, best_cost, COALESCE(error, '')
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scans: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ScanRun, error) {
		var (
			r  domain.ScanRun
			ms int64
		)
		err := row.Scan(&r.ID, &r.StartedAt, &ms,
			&r.Counts.EventsA, &r.Counts.EventsB, &r.Counts.Matched,
			&r.Counts.HighConfidence, &r.Counts.Profitable,
			&r.BestCost, &r.Error)
		r.Duration = time.Duration(ms) * time.Millisecond
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: list scans: %w", err)
	}
	return runs, nil
}
