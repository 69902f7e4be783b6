// Package acquisition loads moneyline events from the venues and refines
// their prices. Every collection it returns is in a deterministic order:
// source order, then page order, whatever order the workers finish in.
package acquisition

import (
	"context"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Source produces the canonical events listed on one venue.
type Source interface {
	Venue() domain.Venue
	Fetch(ctx context.Context) ([]domain.CanonicalEvent, error)
}

var (
	_ Source = (*KalshiSource)(nil)
	_ Source = (*PolymarketSource)(nil)
)

// dedupe keeps the first event for every non-empty key.
func dedupe(events []domain.CanonicalEvent, key func(*domain.CanonicalEvent) string) []domain.CanonicalEvent {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for i := range events {
		k := key(&events[i])
		if k != "" {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, events[i])
	}
	return out
}
