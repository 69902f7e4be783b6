package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func TestNormalizeTeam(t *testing.T) {
	n := NewNormalizer(DefaultTables())

	tests := []struct {
		raw, want string
	}{
		{"LAL", "lakers"},
		{"Los Angeles Lakers", "lakers"},
		{"  LA Lakers ", "lakers"},
		{"Duke (3)", "duke"},
		{"#12 Gonzaga", "gonzaga"},
		{"(1) #4 Kansas St", "kansas state"},
		{"Some Club FC", "some club fc"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, n.NormalizeTeam(tt.raw))
		})
	}
}

func TestNormalizeTeam_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultTables())
	for raw := range DefaultTables().Teams {
		once := n.NormalizeTeam(raw)
		assert.Equal(t, once, n.NormalizeTeam(once), "alias %q", raw)
	}
	for _, raw := range []string{"Miami FL", "Trail Blazers (2)", "Unknown Team"} {
		once := n.NormalizeTeam(raw)
		assert.Equal(t, once, n.NormalizeTeam(once), "input %q", raw)
	}
}

func TestNewNormalizer_CollapsesChainsAndCycles(t *testing.T) {
	n := NewNormalizer(domain.AliasTables{
		Teams: map[string]string{
			"A":   "b",
			"b":   "c",
			"x":   "y",
			"y":   "x",
			"Self": "self",
		},
		Leagues: map[string]string{"cbb": "ncaamb", "NCAAMB": "NCAAMB"},
	})

	assert.Equal(t, "c", n.NormalizeTeam("a"))
	assert.Equal(t, "c", n.NormalizeTeam("b"))
	assert.Equal(t, "self", n.NormalizeTeam("SELF"))
	assert.Contains(t, []string{"x", "y"}, n.NormalizeTeam("x"))
	assert.Equal(t, "NCAAMB", n.NormalizeLeague(" cbb "))
}

func TestNormalizeLeague(t *testing.T) {
	n := NewNormalizer(DefaultTables())

	assert.Equal(t, "NBA", n.NormalizeLeague("KXNBAGAME"))
	assert.Equal(t, "NCAAMB", n.NormalizeLeague("cbb"))
	assert.Equal(t, "NCAAMB", n.NormalizeLeague("KXNCAABGAME"))
	assert.Equal(t, "XFL", n.NormalizeLeague(" xfl "))
	assert.Equal(t, "", n.NormalizeLeague(""))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"2026-02-01", "2026-02-01", true},
		{"2026-02-01T19:30:00Z", "2026-02-01", true},
		{"2026-02-01T23:30:00-05:00", "2026-02-01", true},
		{"2026-02-02T03:00:00.123Z", "2026-02-02", true},
		{"2026-02-01T19:30:00", "2026-02-01", true},
		{" 2026-02-01 ", "2026-02-01", true},
		{"", "", false},
		{"tomorrow", "", false},
		{"2026/02/01", "", false},
		{"2026-13-01", "", false},
		{"2026-02-01Tgarbage", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeDate(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.True(t, got.IsZero())
				return
			}
			assert.Equal(t, tt.want, got.Format(time.DateOnly))
			assert.Equal(t, time.UTC, got.Location())
			assert.Zero(t, got.Hour())
		})
	}
}

func TestDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	in := time.Date(2026, 2, 1, 22, 15, 0, 0, est)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestParseTimestamp(t *testing.T) {
	got, ok := ParseTimestamp("2026-02-02T03:00:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 2, 3, 0, 0, 0, time.UTC), got.UTC())

	got, ok = ParseTimestamp("2026-02-02T03:00")
	require.True(t, ok)
	assert.Equal(t, 3, got.Hour())

	_, ok = ParseTimestamp("2026-02-02")
	assert.False(t, ok)
}
