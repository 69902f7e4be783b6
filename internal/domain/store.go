package domain

import (
	"context"
	"time"
)

// AliasTables maps raw names to canonical ones. Team keys are lower case,
// league keys upper case.
type AliasTables struct {
	Teams   map[string]string `json:"teams" toml:"teams"`
	Leagues map[string]string `json:"leagues" toml:"leagues"`
}

// AliasStore loads alias overrides from persistent storage.
type AliasStore interface {
	LoadAliases(ctx context.Context) (AliasTables, error)
}

// ScanRun is the persisted summary of one scan.
type ScanRun struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Counts    ReportCounts
	// BestCost is the cheapest hedge found, nil when nothing was profitable.
	BestCost *float64
	Error    string
}

// ScanStore keeps the scan history.
type ScanStore interface {
	RecordScan(ctx context.Context, run ScanRun) error
	ListScans(ctx context.Context, limit int) ([]ScanRun, error)
}
