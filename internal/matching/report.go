package matching

import (
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// ReportOptions sets the report thresholds. Both bounds are exclusive.
type ReportOptions struct {
	ConfidenceFloor float64
	CostCeiling     float64
}

// DefaultReportOptions returns the standard report thresholds.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		ConfidenceFloor: 0.67,
		CostCeiling:     0.99,
	}
}

// Screened is the outcome of Screen.
type Screened struct {
	Total          int
	HighConfidence int
	Profitable     []domain.Opportunity
}

// Filter keeps matches with confidence above the floor whose cost is below the
// ceiling, sorted by league, date, then venue-A team 1. The sort is stable.
func Filter(matches []domain.MatchRecord, opts ReportOptions) []domain.Opportunity {
	return Screen(matches, opts).Profitable
}

// Screen runs Filter and also reports how many matches cleared the
// confidence floor.
func Screen(matches []domain.MatchRecord, opts ReportOptions) Screened {
	s := Screened{Total: len(matches)}
	for _, m := range matches {
		if m.Confidence <= opts.ConfidenceFloor {
			continue
		}
		s.HighConfidence++
		if c := Cost(m); c < opts.CostCeiling {
			s.Profitable = append(s.Profitable, domain.Opportunity{Match: m, Cost: c})
		}
	}
	SortOpportunities(s.Profitable)
	return s
}

// SortOpportunities orders opportunities by league, date and venue-A team 1.
func SortOpportunities(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i].Match.A, opps[j].Match.A
		if a.League != b.League {
			return a.League < b.League
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.TeamA < b.TeamA
	})
}
