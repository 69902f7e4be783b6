package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func record(league, date, team string, conf, aPrice1, aPrice2, bPrice1, bPrice2 float64, swapped bool) domain.MatchRecord {
	a := kalshiEvent(league, date, team, "opponent", aPrice1, aPrice2)
	b := polyEvent(league, date, team, "opponent", bPrice1, bPrice2)
	return domain.MatchRecord{A: &a, B: &b, Confidence: conf, Swapped: swapped}
}

func TestCost(t *testing.T) {
	tests := []struct {
		name string
		m    domain.MatchRecord
		want float64
	}{
		{"straight", record("NBA", "2026-02-01", "x", 1, 0.45, 0.58, 0.52, 0.40, false), 0.85},
		{"swapped", record("NBA", "2026-02-01", "x", 1, 0.45, 0.58, 0.40, 0.52, true), 0.85},
		{"missing b price", record("NBA", "2026-02-01", "x", 1, 0.30, 0.58, 0.52, 0, false), 1.1},
		{"both hedges incomplete", record("NBA", "2026-02-01", "x", 1, 0, 0, 0, 0, false), 2},
		{"nan and out of range", record("NBA", "2026-02-01", "x", 1, math.NaN(), 1.2, -0.1, 0.2, false), 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cost(tt.m), 1e-12)
		})
	}
}

func TestEvaluate_KeepsOrder(t *testing.T) {
	ms := []domain.MatchRecord{
		record("NHL", "2026-02-01", "b", 1, 0.5, 0.5, 0.5, 0.5, false),
		record("NBA", "2026-02-01", "a", 1, 0.4, 0.6, 0.55, 0.45, false),
	}
	got := Evaluate(ms)
	require.Len(t, got, 2)
	assert.Equal(t, "NHL", got[0].Match.A.League)
	assert.InDelta(t, 1.0, got[0].Cost, 1e-12)
	assert.InDelta(t, 0.85, got[1].Cost, 1e-12)
	assert.InDelta(t, 0.15, got[1].Profit(), 1e-12)
}

func TestFilter_Boundaries(t *testing.T) {
	ms := []domain.MatchRecord{
		record("NBA", "2026-02-01", "at floor", 0.67, 0.4, 0.6, 0.5, 0.5, false),
		record("NBA", "2026-02-01", "above floor", 0.6701, 0.4, 0.6, 0.5, 0.5, false),
		record("NBA", "2026-02-01", "at ceiling", 0.9, 0.49, 0.6, 0.6, 0.5, false),
		record("NBA", "2026-02-01", "under ceiling", 0.9, 0.48, 0.6, 0.6, 0.5, false),
	}
	s := Screen(ms, DefaultReportOptions())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.HighConfidence)

	var teams []string
	for _, o := range s.Profitable {
		teams = append(teams, o.Match.A.TeamA)
	}
	assert.ElementsMatch(t, []string{"above floor", "under ceiling"}, teams)
}

func TestFilter_SortsStably(t *testing.T) {
	ms := []domain.MatchRecord{
		record("NHL", "2026-02-01", "bruins", 0.9, 0.4, 0.6, 0.5, 0.5, false),
		record("NBA", "2026-02-02", "celtics", 0.9, 0.4, 0.6, 0.5, 0.5, false),
		record("NBA", "2026-02-01", "lakers", 0.9, 0.4, 0.6, 0.5, 0.5, false),
		record("NBA", "2026-02-01", "heat", 0.9, 0.4, 0.6, 0.5, 0.5, false),
		record("NBA", "2026-02-01", "heat", 0.8, 0.4, 0.6, 0.5, 0.5, false),
	}
	got := Filter(ms, DefaultReportOptions())
	require.Len(t, got, 5)

	type key struct {
		league, team string
		conf         float64
	}
	var keys []key
	for _, o := range got {
		keys = append(keys, key{o.Match.A.League, o.Match.A.TeamA, o.Match.Confidence})
	}
	assert.Equal(t, []key{
		{"NBA", "heat", 0.9},
		{"NBA", "heat", 0.8},
		{"NBA", "lakers", 0.9},
		{"NBA", "celtics", 0.9},
		{"NHL", "bruins", 0.9},
	}, keys)
}

func TestFilter_Empty(t *testing.T) {
	assert.Empty(t, Filter(nil, DefaultReportOptions()))
}
