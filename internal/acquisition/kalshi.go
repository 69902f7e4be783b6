package acquisition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/platform/kalshi"
)

// DefaultKalshiSeries lists the game series scanned on Kalshi.
var DefaultKalshiSeries = []string{
	"KXNBAGAME", "KXNFLGAME", "KXNHLGAME", "KXMLBGAME", "KXWNBAGAME",
	"KXNCAAMBGAME", "KXNCAAWBGAME", "KXNCAABGAME", "KXNCAAFGAME",
	"KXNCAAHOCKEYGAME", "KXNCAALAXGAME",
	"KXUFCFIGHT", "KXBOXINGFIGHT",
	"KXUNRIVALEDGAME", "KXEUROLEAGUEGAME", "KXEUROCUPGAME", "KXKBLGAME",
	"KXCBAGAME", "KXJBLEAGUEGAME", "KXNBLGAME",
	"KXAHLGAME", "KXKHLGAME", "KXSHLGAME",
	"KXATPGAME", "KXWTAGAME",
	"KXLOLGAME", "KXCS2GAME", "KXVALORANTGAME", "KXDOTA2GAME",
}

const (
	kalshiPageSize  = 200
	kalshiMarketURL = "https://kalshi.com/markets/"

	// Market-to-team assignment by ticker code similarity.
	codeMinScore     = 0.4
	codeMinLead      = 0.1
	codeContainedLen = 2
)

var (
	kalshiTickerDate = regexp.MustCompile(`^(\d{2})([A-Z]{3})(\d{2})`)
	titleSeparators  = []string{" at ", " vs. ", " vs "}
	months           = map[string]time.Month{
		"JAN": time.January, "FEB": time.February, "MAR": time.March,
		"APR": time.April, "MAY": time.May, "JUN": time.June,
		"JUL": time.July, "AUG": time.August, "SEP": time.September,
		"OCT": time.October, "NOV": time.November, "DEC": time.December,
	}
)

// KalshiAPI is the part of the Kalshi client used here.
type KalshiAPI interface {
	GetEvents(ctx context.Context, q kalshi.EventsQuery) (kalshi.EventsPage, error)
}

// KalshiConfig configures a KalshiSource.
type KalshiConfig struct {
	Series   []string
	Workers  int
	Retry    RetryPolicy
	Throttle *Throttle
	Logger   *slog.Logger
}

// KalshiSource loads open game events from Kalshi, one series per worker.
type KalshiSource struct {
	api    KalshiAPI
	norm   *matching.Normalizer
	cfg    KalshiConfig
	logger *slog.Logger
}

// NewKalshiSource creates a KalshiSource. An empty series list falls back to
// DefaultKalshiSeries.
func NewKalshiSource(api KalshiAPI, norm *matching.Normalizer, cfg KalshiConfig) *KalshiSource {
	if len(cfg.Series) == 0 {
		cfg.Series = DefaultKalshiSeries
	}
	if cfg.Workers < 1 {
		cfg.Workers = 5
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KalshiSource{
		api:    api,
		norm:   norm,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "kalshi_source")),
	}
}

// Venue implements Source.
func (s *KalshiSource) Venue() domain.Venue { return domain.VenueKalshi }

// Fetch returns every parseable game across all series, in series order and
// then page order. A series whose requests keep failing contributes nothing;
// Fetch only errors when every series failed.
func (s *KalshiSource) Fetch(ctx context.Context) ([]domain.CanonicalEvent, error) {
	parts, failed := fanOut(ctx, s.cfg.Workers, len(s.cfg.Series), func(ctx context.Context, i int) ([]domain.CanonicalEvent, bool) {
		series := s.cfg.Series[i]
		events, err := s.fetchSeries(ctx, series)
		if err != nil {
			s.logger.WarnContext(ctx, "series fetch failed",
				slog.String("series", series),
				slog.String("error", err.Error()),
			)
			return nil, false
		}
		s.logger.DebugContext(ctx, "series fetched",
			slog.String("series", series),
			slog.Int("games", len(events)),
		)
		return events, true
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquisition: kalshi: %w", err)
	}
	if failed == len(s.cfg.Series) && failed > 0 {
		return nil, fmt.Errorf("acquisition: kalshi: all %d series failed: %w", failed, domain.ErrTransient)
	}

	events := dedupe(flatten(parts), func(e *domain.CanonicalEvent) string { return e.URL })
	s.logger.InfoContext(ctx, "kalshi games loaded",
		slog.Int("games", len(events)),
		slog.Int("series", len(s.cfg.Series)),
		slog.Int("failed_series", failed),
	)
	return events, nil
}

// fetchSeries walks the cursor pages of one series. Games parsed before a
// failure are returned with the error.
func (s *KalshiSource) fetchSeries(ctx context.Context, series string) ([]domain.CanonicalEvent, error) {
	league := s.norm.NormalizeLeague(series)
	var (
		games  []domain.CanonicalEvent
		cursor string
	)
	for {
		if err := ctx.Err(); err != nil {
			return games, err
		}

		var page kalshi.EventsPage
		err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			if err := s.cfg.Throttle.Wait(ctx); err != nil {
				return err
			}
			var err error
			page, err = s.api.GetEvents(ctx, kalshi.EventsQuery{
				SeriesTicker:      series,
				Status:            "open",
				Limit:             kalshiPageSize,
				Cursor:            cursor,
				WithNestedMarkets: true,
			})
			return err
		})
		if err != nil {
			return games, err
		}
		if len(page.Events) == 0 {
			return games, nil
		}

		for i := range page.Events {
			if ev, ok := ParseKalshiEvent(&page.Events[i], league, s.norm); ok {
				games = append(games, ev)
			}
		}

		if page.Cursor == "" || page.Cursor == cursor {
			return games, nil
		}
		cursor = page.Cursor
	}
}

// ParseKalshiEvent turns one Kalshi event into a canonical event. It fails
// when the ticker has no date, the title does not name two teams, or either
// team is left without a price.
func ParseKalshiEvent(ev *kalshi.Event, league string, norm *matching.Normalizer) (domain.CanonicalEvent, bool) {
	date, ok := ParseKalshiDate(ev.EventTicker)
	if !ok {
		return domain.CanonicalEvent{}, false
	}
	raw1, raw2, ok := SplitTeams(ev.Title)
	if !ok {
		return domain.CanonicalEvent{}, false
	}
	t1, t2 := norm.NormalizeTeam(raw1), norm.NormalizeTeam(raw2)

	var (
		volume         float64
		price1, price2 float64
		has1, has2     bool
	)
	for i := range ev.Markets {
		m := &ev.Markets[i]
		if m.Volume.Set {
			volume += m.Volume.Value
		}
		side, price, ok := assignMarket(m, t1, t2, norm)
		if !ok {
			continue
		}
		if side == 1 {
			price1, has1 = price, true
		} else {
			price2, has2 = price, true
		}
	}
	if !has1 || !has2 {
		return domain.CanonicalEvent{}, false
	}

	return domain.CanonicalEvent{
		Venue:  domain.VenueKalshi,
		League: league,
		Date:   date,
		TeamA:  t1,
		TeamB:  t2,
		PriceA: price1,
		PriceB: price2,
		Volume: volume,
		Title:  ev.Title,
		URL:    kalshiMarketURL + ev.EventTicker,
	}, true
}

// ParseKalshiDate reads the game date embedded in an event ticker such as
// "KXNBAGAME-26FEB01LALBOS" (2026-02-01).
func ParseKalshiDate(ticker string) (time.Time, bool) {
	_, rest, ok := strings.Cut(ticker, "-")
	if !ok {
		return time.Time{}, false
	}
	m := kalshiTickerDate.FindStringSubmatch(rest)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := months[m[2]]
	if !ok {
		return time.Time{}, false
	}
	yy, _ := strconv.Atoi(m[1])
	dd, _ := strconv.Atoi(m[3])
	t := time.Date(2000+yy, month, dd, 0, 0, 0, 0, time.UTC)
	if t.Day() != dd {
		return time.Time{}, false
	}
	return t, true
}

// SplitTeams splits "Team A at Team B" or "Team A vs Team B". The first
// separator that splits the title into exactly two non-empty names wins.
func SplitTeams(title string) (string, string, bool) {
	for _, sep := range titleSeparators {
		if !strings.Contains(title, sep) {
			continue
		}
		parts := strings.Split(title, sep)
		if len(parts) != 2 {
			continue
		}
		a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if a == "" || b == "" {
			continue
		}
		return a, b, true
	}
	return "", "", false
}

// kalshiAsk returns the market's yes ask in dollars. yes_ask_dollars wins
// when it holds a usable price; otherwise the legacy cents field is used.
func kalshiAsk(m *kalshi.Market) (float64, bool) {
	if m.YesAskDollars.Set && domain.ValidPrice(m.YesAskDollars.Value) {
		return m.YesAskDollars.Value, true
	}
	if m.YesAsk.Set {
		if p := m.YesAsk.Value / 100; domain.ValidPrice(p) {
			return p, true
		}
	}
	return 0, false
}

// assignMarket decides which team a market pays out on. Kalshi game markets
// end their ticker with a team code ("...-LAL"); the code is matched exactly,
// then by similarity, and single-team market titles are the last resort.
func assignMarket(m *kalshi.Market, t1, t2 string, norm *matching.Normalizer) (side int, price float64, ok bool) {
	price, ok = kalshiAsk(m)
	if !ok {
		return 0, 0, false
	}

	var code string
	if i := strings.LastIndex(m.Ticker, "-"); i >= 0 {
		if raw := strings.ToLower(m.Ticker[i+1:]); raw != "" {
			code = norm.NormalizeTeam(raw)
		}
	}

	if code != "" {
		switch code {
		case t1:
			return 1, price, true
		case t2:
			return 2, price, true
		}

		s1 := matching.BoostContained(matching.Score(code, t1), code, t1, codeContainedLen)
		s2 := matching.BoostContained(matching.Score(code, t2), code, t2, codeContainedLen)
		if s1 > codeMinScore && s1 > s2+codeMinLead {
			return 1, price, true
		}
		if s2 > codeMinScore && s2 > s1+codeMinLead {
			return 2, price, true
		}
	}

	title := strings.ToLower(m.Title)
	if !strings.Contains(title, " vs ") && !strings.Contains(title, " at ") {
		if t1 != "" && strings.Contains(title, t1) {
			return 1, price, true
		}
		if t2 != "" && strings.Contains(title, t2) {
			return 2, price, true
		}
	}
	return 0, 0, false
}
