// Package matching pairs moneyline events listed on two venues and prices the
// cross-venue hedge. Everything here is pure and single threaded; callers
// fetch the events and act on the results.
package matching

import (
	"regexp"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var (
	rankParens = regexp.MustCompile(`\(\d+\)`)
	rankHash   = regexp.MustCompile(`#\d+`)
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// timestampLayouts are the ISO-8601 shapes accepted by NormalizeDate when the
// input carries a time component.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// Normalizer canonicalizes team names, league codes and dates using alias
// tables fixed at construction.
type Normalizer struct {
	teams   map[string]string
	leagues map[string]string
}

// NewNormalizer builds a Normalizer from tables. The tables are copied; alias
// chains (a -> b where b is itself an alias) are collapsed to their final
// target so that normalizing twice gives the same answer as normalizing once.
func NewNormalizer(tables domain.AliasTables) *Normalizer {
	teams := make(map[string]string, len(tables.Teams))
	for k, v := range tables.Teams {
		teams[cleanTeam(k)] = cleanTeam(v)
	}
	leagues := make(map[string]string, len(tables.Leagues))
	for k, v := range tables.Leagues {
		leagues[cleanLeague(k)] = cleanLeague(v)
	}
	return &Normalizer{
		teams:   collapse(teams),
		leagues: collapse(leagues),
	}
}

// NormalizeTeam lowercases raw, strips ranking annotations such as "(3)" and
// "#12", and resolves the result through the team alias table. A miss returns
// the cleaned string.
func (n *Normalizer) NormalizeTeam(raw string) string {
	s := cleanTeam(raw)
	if v, ok := n.teams[s]; ok {
		return v
	}
	return s
}

// NormalizeLeague upper-cases raw and resolves it through the league table.
// Unknown codes come back upper-cased so they still bucket with themselves.
func (n *Normalizer) NormalizeLeague(raw string) string {
	s := cleanLeague(raw)
	if v, ok := n.leagues[s]; ok {
		return v
	}
	return s
}

// NormalizeDate accepts an ISO-8601 timestamp or a YYYY-MM-DD string and
// returns the calendar day at UTC midnight. Timestamps keep the day in their
// own offset. ok is false for anything else.
func NormalizeDate(raw string) (day time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.Contains(raw, "T") {
		t, ok := ParseTimestamp(raw)
		if !ok {
			return time.Time{}, false
		}
		return Day(t), true
	}
	if !isoDate.MatchString(raw) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp parses an ISO-8601 timestamp. Inputs without an offset are
// read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Day truncates t to its calendar day, expressed at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cleanTeam(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	for {
		next := rankHash.ReplaceAllString(rankParens.ReplaceAllString(s, ""), "")
		next = strings.TrimSpace(next)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanLeague(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// collapse rewrites every value to the end of its alias chain. Cycles stop at
// the first repeated key.
func collapse(table map[string]string) map[string]string {
	out := make(map[string]string, len(table))
	for k, v := range table {
		seen := map[string]bool{k: true}
		for {
			next, ok := table[v]
			if !ok || next == v || seen[v] {
				break
			}
			seen[v] = true
			v = next
		}
		out[k] = v
	}
	return out
}
