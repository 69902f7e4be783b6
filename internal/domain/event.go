package domain

import (
	"fmt"
	"time"
)

// Venue identifies the platform an event was listed on.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// CanonicalEvent is one moneyline market for one game, normalized so that
// events from different venues can be compared field by field.
//
// League, Date, TeamA and TeamB are fixed once the event is built. PriceA and
// PriceB may be overwritten by a price refinement pass; a zero price means the
// venue did not quote that side.
type CanonicalEvent struct {
	Venue  Venue
	League string
	// Date is the calendar day of the game at UTC midnight. The zero value
	// means the event could not be placed on a calendar.
	Date   time.Time
	TeamA  string
	TeamB  string
	PriceA float64
	PriceB float64
	Volume float64
	Title  string
	URL    string

	// TokenA and TokenB are order book token ids used to refine prices. Empty
	// when the venue has no per-side book to query.
	TokenA string
	TokenB string
}

// HasDate reports whether the event can be placed on a calendar day.
func (e *CanonicalEvent) HasDate() bool {
	return !e.Date.IsZero()
}

// Key returns a stable identifier for logging and dedup.
func (e *CanonicalEvent) Key() string {
	return fmt.Sprintf("%s:%s:%s:%svs%s", e.Venue, e.League, e.DateString(), e.TeamA, e.TeamB)
}

// DateString formats Date as YYYY-MM-DD, or "" when the event has no date.
func (e *CanonicalEvent) DateString() string {
	if !e.HasDate() {
		return ""
	}
	return e.Date.Format(time.DateOnly)
}

// ValidPrice reports whether p is a usable ask price.
func ValidPrice(p float64) bool {
	return p > 0 && p < 1
}
