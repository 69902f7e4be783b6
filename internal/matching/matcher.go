package matching

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Options tunes the matcher.
type Options struct {
	// DateTolerance is the largest day difference treated as the same game.
	DateTolerance int
	// ScoreThreshold is exclusive: a pair must score strictly above it.
	ScoreThreshold float64
	// Logger receives per-league debug output. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns the standard matcher settings.
func DefaultOptions() Options {
	return Options{
		DateTolerance:  1,
		ScoreThreshold: 0.50,
	}
}

// Matcher pairs events from venue A with events from venue B.
//
// Assignment is greedy and follows input order: each venue-A event takes the
// best venue-B candidate still available, and a venue-B event once taken is
// never reconsidered. A later venue-A event can therefore lose a pairing it
// would have won under a global assignment.
type Matcher struct {
	opts   Options
	logger *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(opts Options) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Matcher{
		opts:   opts,
		logger: logger.With(slog.String("component", "matcher")),
	}
}

// Match returns one record per venue-A event that found a venue-B partner,
// ordered by league name and then by venue-A input order. Events without a
// date are skipped. The only error is domain.ErrInvalidEvent for input that
// breaks the event shape.
func (m *Matcher) Match(eventsA, eventsB []domain.CanonicalEvent) ([]domain.MatchRecord, error) {
	if m.opts.DateTolerance < 0 {
		return nil, fmt.Errorf("matching: date tolerance %d: %w", m.opts.DateTolerance, domain.ErrInvalidEvent)
	}
	venueA, err := checkSide("a", eventsA)
	if err != nil {
		return nil, err
	}
	venueB, err := checkSide("b", eventsB)
	if err != nil {
		return nil, err
	}
	if venueA != "" && venueA == venueB {
		return nil, fmt.Errorf("matching: both sides are venue %q: %w", venueA, domain.ErrInvalidEvent)
	}

	bucketsA := bucketByLeague(eventsA)
	bucketsB := bucketByLeague(eventsB)

	leagues := make([]string, 0, len(bucketsA)+len(bucketsB))
	for league := range bucketsA {
		leagues = append(leagues, league)
	}
	for league := range bucketsB {
		if _, ok := bucketsA[league]; !ok {
			leagues = append(leagues, league)
		}
	}
	sort.Strings(leagues)

	consumed := make([]bool, len(eventsB))
	var records []domain.MatchRecord

	for _, league := range leagues {
		idxA, idxB := bucketsA[league], bucketsB[league]
		if len(idxA) == 0 || len(idxB) == 0 {
			m.logger.Debug("league listed on one venue only",
				slog.String("league", league),
				slog.Int("events_a", len(idxA)),
				slog.Int("events_b", len(idxB)),
			)
			continue
		}
		m.logger.Debug("matching league",
			slog.String("league", league),
			slog.Int("events_a", len(idxA)),
			slog.Int("events_b", len(idxB)),
		)

		before := len(records)
		for _, ia := range idxA {
			a := &eventsA[ia]
			best, score, swapped := m.bestCandidate(a, eventsB, idxB, consumed)
			if best < 0 {
				continue
			}
			consumed[best] = true
			records = append(records, domain.MatchRecord{
				A:          a,
				B:          &eventsB[best],
				IndexA:     ia,
				IndexB:     best,
				Confidence: score,
				Swapped:    swapped,
			})
		}
		m.logger.Debug("league matched",
			slog.String("league", league),
			slog.Int("matches", len(records)-before),
		)
	}

	return records, nil
}

// bestCandidate scans the unconsumed venue-B events of one league. Only a
// strictly higher score replaces the current best, so the earliest candidate
// wins a tie.
func (m *Matcher) bestCandidate(a *domain.CanonicalEvent, eventsB []domain.CanonicalEvent, idxB []int, consumed []bool) (best int, bestScore float64, swapped bool) {
	best = -1
	for _, ib := range idxB {
		if consumed[ib] {
			continue
		}
		b := &eventsB[ib]
		if !withinDays(a.Date, b.Date, m.opts.DateTolerance) {
			continue
		}

		score, crossed := PairScore(a, b)
		if score > bestScore && score > m.opts.ScoreThreshold {
			best, bestScore, swapped = ib, score, crossed
		}
	}
	return best, bestScore, swapped
}

// PairScore compares two events under both team alignments and returns the
// better average. crossed is true when a.TeamA lines up with b.TeamB.
func PairScore(a, b *domain.CanonicalEvent) (score float64, crossed bool) {
	straight := (Score(a.TeamA, b.TeamA) + Score(a.TeamB, b.TeamB)) / 2
	cross := (Score(a.TeamA, b.TeamB) + Score(a.TeamB, b.TeamA)) / 2
	if cross > straight {
		return cross, true
	}
	return straight, false
}

// Match runs a Matcher built from opts.
func Match(eventsA, eventsB []domain.CanonicalEvent, opts Options) ([]domain.MatchRecord, error) {
	return NewMatcher(opts).Match(eventsA, eventsB)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// checkSide verifies every event on one side has a league, both teams and
// the same venue. It returns that venue, or "" for an empty side.
func checkSide(side string, events []domain.CanonicalEvent) (domain.Venue, error) {
	var venue domain.Venue
	for i := range events {
		e := &events[i]
		switch {
		case e.Venue == "":
			return "", fmt.Errorf("matching: side %s event %d has no venue: %w", side, i, domain.ErrInvalidEvent)
		case e.League == "":
			return "", fmt.Errorf("matching: side %s event %d has no league: %w", side, i, domain.ErrInvalidEvent)
		case e.TeamA == "" || e.TeamB == "":
			return "", fmt.Errorf("matching: side %s event %d is missing a team: %w", side, i, domain.ErrInvalidEvent)
		}
		if venue == "" {
			venue = e.Venue
		} else if e.Venue != venue {
			return "", fmt.Errorf("matching: side %s mixes venues %q and %q: %w", side, venue, e.Venue, domain.ErrInvalidEvent)
		}
	}
	return venue, nil
}

// bucketByLeague groups event indices by league in input order, leaving out
// events that have no date.
func bucketByLeague(events []domain.CanonicalEvent) map[string][]int {
	buckets := make(map[string][]int)
	for i := range events {
		if !events[i].HasDate() {
			continue
		}
		buckets[events[i].League] = append(buckets[events[i].League], i)
	}
	return buckets
}

func withinDays(a, b time.Time, tolerance int) bool {
	days := int64(Day(a).Sub(Day(b)) / (24 * time.Hour))
	if days < 0 {
		days = -days
	}
	return days <= int64(tolerance)
}
