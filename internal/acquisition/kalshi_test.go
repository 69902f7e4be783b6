package acquisition

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/platform/kalshi"
)

func num(v float64) kalshi.Number { return kalshi.Number{Value: v, Set: true} }

func normalizer() *matching.Normalizer {
	return matching.NewNormalizer(matching.DefaultTables())
}

func lakersCeltics() kalshi.Event {
	return kalshi.Event{
		EventTicker: "KXNBAGAME-26FEB01LALBOS",
		Title:       "Los Angeles Lakers at Boston Celtics",
		Markets: []kalshi.Market{
			{Ticker: "KXNBAGAME-26FEB01LALBOS-LAL", YesAskDollars: num(0.45), Volume: num(1000)},
			{Ticker: "KXNBAGAME-26FEB01LALBOS-BOS", YesAsk: num(58), Volume: num(250)},
		},
	}
}

func TestParseKalshiDate(t *testing.T) {
	tests := []struct {
		ticker string
		want   string
		ok     bool
	}{
		{"KXNBAGAME-26FEB01LALBOS", "2026-02-01", true},
		{"KXNHLGAME-25DEC31BOSNYR", "2025-12-31", true},
		{"KXNBAGAME-26FEB30LALBOS", "", false},
		{"KXNBAGAME-26XYZ01LALBOS", "", false},
		{"KXNBAGAME-2FEB01", "", false},
		{"KXNBAGAME", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			got, ok := ParseKalshiDate(tt.ticker)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format(time.DateOnly))
			}
		})
	}
}

func TestSplitTeams(t *testing.T) {
	tests := []struct {
		title  string
		a, b   string
		wantOK bool
	}{
		{"Los Angeles L at Boston", "Los Angeles L", "Boston", true},
		{"Duke vs. North Carolina", "Duke", "North Carolina", true},
		{"Duke vs North Carolina", "Duke", "North Carolina", true},
		{"A at B at C", "", "", false},
		{"at Boston", "", "", false},
		{"Who will win the title?", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			a, b, ok := SplitTeams(tt.title)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.a, a)
			assert.Equal(t, tt.b, b)
		})
	}
}

func TestParseKalshiEvent(t *testing.T) {
	n := normalizer()
	ev := lakersCeltics()

	got, ok := ParseKalshiEvent(&ev, "NBA", n)
	require.True(t, ok)
	assert.Equal(t, domain.CanonicalEvent{
		Venue:  domain.VenueKalshi,
		League: "NBA",
		Date:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		TeamA:  "lakers",
		TeamB:  "celtics",
		PriceA: 0.45,
		PriceB: 0.58,
		Volume: 1250,
		Title:  "Los Angeles Lakers at Boston Celtics",
		URL:    "https://kalshi.com/markets/KXNBAGAME-26FEB01LALBOS",
	}, got)
}

func TestParseKalshiEvent_MarketAssignment(t *testing.T) {
	n := normalizer()
	base := kalshi.Event{EventTicker: "KXNCAAMBGAME-26MAR05GONBAY", Title: "Gonzaga at Baylor"}

	tests := []struct {
		name    string
		markets []kalshi.Market
		p1, p2  float64
		ok      bool
	}{
		{
			name: "contained short codes",
			markets: []kalshi.Market{
				{Ticker: "X-GONZ", YesAskDollars: num(0.6)},
				{Ticker: "X-BA", YesAskDollars: num(0.42)},
			},
			p1: 0.6, p2: 0.42, ok: true,
		},
		{
			name: "title fallback",
			markets: []kalshi.Market{
				{Ticker: "X-XQ", Title: "Gonzaga", YesAskDollars: num(0.3)},
				{Ticker: "Y", Title: "Baylor to win", YesAskDollars: num(0.71)},
			},
			p1: 0.3, p2: 0.71, ok: true,
		},
		{
			name: "game title is not a single team",
			markets: []kalshi.Market{
				{Ticker: "X-GONZ", YesAskDollars: num(0.6)},
				{Ticker: "X-XQ", Title: "Gonzaga vs Baylor", YesAskDollars: num(0.4)},
			},
			ok: false,
		},
		{
			name: "cents fallback when dollars unusable",
			markets: []kalshi.Market{
				{Ticker: "X-GONZ", YesAskDollars: num(1), YesAsk: num(55)},
				{Ticker: "X-BA", YesAsk: num(47)},
			},
			p1: 0.55, p2: 0.47, ok: true,
		},
		{
			name: "zero dollar ask falls back to cents",
			markets: []kalshi.Market{
				{Ticker: "X-GONZ", YesAskDollars: num(0), YesAsk: num(0)},
				{Ticker: "X-BA", YesAskDollars: num(0.47)},
			},
			ok: false,
		},
		{
			name: "no ask rejects the market",
			markets: []kalshi.Market{
				{Ticker: "X-GONZ", YesAsk: num(100)},
				{Ticker: "X-BA", YesAsk: num(47)},
			},
			ok: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := base
			ev.Markets = tt.markets
			got, ok := ParseKalshiEvent(&ev, "NCAAMB", n)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, "gonzaga", got.TeamA)
			assert.Equal(t, "baylor", got.TeamB)
			assert.InDelta(t, tt.p1, got.PriceA, 1e-12)
			assert.InDelta(t, tt.p2, got.PriceB, 1e-12)
		})
	}
}

// fakeKalshi serves canned pages per series and cursor.
type fakeKalshi struct {
	mu     sync.Mutex
	pages  map[string]kalshi.EventsPage
	fail   map[string]error
	calls  map[string]int
	delays map[string]time.Duration
}

func (f *fakeKalshi) GetEvents(ctx context.Context, q kalshi.EventsQuery) (kalshi.EventsPage, error) {
	f.mu.Lock()
	f.calls[q.SeriesTicker]++
	err := f.fail[q.SeriesTicker]
	page := f.pages[q.SeriesTicker+"|"+q.Cursor]
	delay := f.delays[q.SeriesTicker]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return kalshi.EventsPage{}, err
	}
	return page, nil
}

func newFakeKalshi() *fakeKalshi {
	return &fakeKalshi{
		pages:  map[string]kalshi.EventsPage{},
		fail:   map[string]error{},
		calls:  map[string]int{},
		delays: map[string]time.Duration{},
	}
}

func TestKalshiSource_Fetch(t *testing.T) {
	api := newFakeKalshi()

	nba1 := lakersCeltics()
	nba2 := lakersCeltics()
	nba2.EventTicker = "KXNBAGAME-26FEB02LALBOS"
	nhl := kalshi.Event{
		EventTicker: "KXNHLGAME-26FEB01BOSNYR",
		Title:       "Bruins at Rangers",
		Markets: []kalshi.Market{
			{Ticker: "KXNHLGAME-26FEB01BOSNYR-BRUINS", YesAskDollars: num(0.52)},
			{Ticker: "KXNHLGAME-26FEB01BOSNYR-NYR", YesAskDollars: num(0.5)},
		},
	}
	junk := kalshi.Event{EventTicker: "KXNBAGAME-NODATE", Title: "Lakers at Celtics"}

	api.pages["KXNBAGAME|"] = kalshi.EventsPage{Events: []kalshi.Event{nba1, junk}, Cursor: "p2"}
	api.pages["KXNBAGAME|p2"] = kalshi.EventsPage{Events: []kalshi.Event{nba2}}
	api.pages["KXNHLGAME|"] = kalshi.EventsPage{Events: []kalshi.Event{nhl}}
	api.delays["KXNBAGAME"] = 20 * time.Millisecond
	api.fail["KXMLBGAME"] = fmt.Errorf("kalshi: HTTP 503: %w", domain.ErrTransient)

	src := NewKalshiSource(api, normalizer(), KalshiConfig{
		Series:  []string{"KXNBAGAME", "KXMLBGAME", "KXNHLGAME"},
		Workers: 3,
		Retry:   RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
	})

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Series order is kept even though NBA finishes last.
	assert.Equal(t, "NBA", events[0].League)
	assert.Equal(t, "2026-02-01", events[0].DateString())
	assert.Equal(t, "2026-02-02", events[1].DateString())
	assert.Equal(t, "NHL", events[2].League)

	assert.Equal(t, 2, api.calls["KXNBAGAME"])
	assert.Equal(t, 3, api.calls["KXMLBGAME"], "transient failures are retried")
}

func TestKalshiSource_AllSeriesFail(t *testing.T) {
	api := newFakeKalshi()
	api.fail["KXNBAGAME"] = fmt.Errorf("kalshi: %w", domain.ErrUnauthorized)

	src := NewKalshiSource(api, normalizer(), KalshiConfig{
		Series: []string{"KXNBAGAME"},
		Retry:  RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
	})
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, api.calls["KXNBAGAME"], "auth failures are not retried")
}

func TestKalshiSource_DuplicateEvents(t *testing.T) {
	api := newFakeKalshi()
	ev := lakersCeltics()
	api.pages["KXNCAAMBGAME|"] = kalshi.EventsPage{Events: []kalshi.Event{ev}}
	api.pages["KXNCAABGAME|"] = kalshi.EventsPage{Events: []kalshi.Event{ev}}

	src := NewKalshiSource(api, normalizer(), KalshiConfig{Series: []string{"KXNCAAMBGAME", "KXNCAABGAME"}})
	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
