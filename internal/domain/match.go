package domain

import "time"

// MatchRecord pairs one venue-A event with the venue-B event judged to be the
// same game. A and B point into the collections passed to the matcher; the
// record does not own them.
type MatchRecord struct {
	A *CanonicalEvent
	B *CanonicalEvent
	// IndexA and IndexB are the positions of A and B in their input slices.
	IndexA int
	IndexB int
	// Confidence is the pair score in [0,1].
	Confidence float64
	// Swapped is true when B lists the teams in the opposite order to A, so
	// B.TeamB corresponds to A.TeamA.
	Swapped bool
}

// AlignedB returns venue-B's prices reordered to venue-A's team order.
func (m MatchRecord) AlignedB() (team1, team2 float64) {
	if m.Swapped {
		return m.B.PriceB, m.B.PriceA
	}
	return m.B.PriceA, m.B.PriceB
}

// AlignedBTeams returns venue-B's team names reordered to venue-A's order.
func (m MatchRecord) AlignedBTeams() (team1, team2 string) {
	if m.Swapped {
		return m.B.TeamB, m.B.TeamA
	}
	return m.B.TeamA, m.B.TeamB
}

// Opportunity is a match annotated with its cheapest combined hedge cost.
type Opportunity struct {
	Match MatchRecord
	Cost  float64
}

// Profit returns the guaranteed payout minus cost, before fees.
func (o Opportunity) Profit() float64 {
	return 1 - o.Cost
}

// ReportCounts summarises how many events survived each stage of a scan.
type ReportCounts struct {
	EventsA        int `json:"events_a"`
	EventsB        int `json:"events_b"`
	Matched        int `json:"matched"`
	HighConfidence int `json:"high_confidence"`
	Profitable     int `json:"profitable"`
	PricesRefined  int `json:"prices_refined"`
	PricesQueried  int `json:"prices_queried"`
}

// Report is the outcome of one scan.
type Report struct {
	ID            string              `json:"id"`
	StartedAt     time.Time           `json:"started_at"`
	Duration      time.Duration       `json:"duration"`
	Counts        ReportCounts        `json:"counts"`
	Opportunities []OpportunitySummary `json:"opportunities"`
}

// OpportunitySummary is the serialisable form of an Opportunity.
type OpportunitySummary struct {
	League     string  `json:"league"`
	Date       string  `json:"date"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Cost       float64 `json:"cost"`
	Swapped    bool    `json:"swapped"`

	KalshiTeam1     string  `json:"kalshi_team1"`
	KalshiTeam2     string  `json:"kalshi_team2"`
	KalshiPrice1    float64 `json:"kalshi_price1"`
	KalshiPrice2    float64 `json:"kalshi_price2"`
	KalshiVolume    float64 `json:"kalshi_volume"`
	KalshiURL       string  `json:"kalshi_url"`
	PolymarketTeam1 string  `json:"polymarket_team1"`
	PolymarketTeam2 string  `json:"polymarket_team2"`
	PolyPrice1      float64 `json:"polymarket_price1"`
	PolyPrice2      float64 `json:"polymarket_price2"`
	PolyVolume      float64 `json:"polymarket_volume"`
	PolyURL         string  `json:"polymarket_url"`
}

// Summarize flattens an Opportunity with venue-B fields aligned to venue A.
func Summarize(o Opportunity) OpportunitySummary {
	a, b := o.Match.A, o.Match.B
	bt1, bt2 := o.Match.AlignedBTeams()
	bp1, bp2 := o.Match.AlignedB()
	return OpportunitySummary{
		League:          a.League,
		Date:            a.DateString(),
		Title:           a.Title,
		Confidence:      o.Match.Confidence,
		Cost:            o.Cost,
		Swapped:         o.Match.Swapped,
		KalshiTeam1:     a.TeamA,
		KalshiTeam2:     a.TeamB,
		KalshiPrice1:    a.PriceA,
		KalshiPrice2:    a.PriceB,
		KalshiVolume:    a.Volume,
		KalshiURL:       a.URL,
		PolymarketTeam1: bt1,
		PolymarketTeam2: bt2,
		PolyPrice1:      bp1,
		PolyPrice2:      bp2,
		PolyVolume:      b.Volume,
		PolyURL:         b.URL,
	}
}
