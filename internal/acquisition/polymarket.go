package acquisition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
)

const (
	polymarketPageSize = 100
	polymarketEventURL = "https://polymarket.com/event/"
)

// PolymarketFeed is one Gamma query to scan: a tag slug or a series id, with
// the league to assume when the event slug does not name one.
type PolymarketFeed struct {
	League   string `toml:"league"`
	TagSlug  string `toml:"tag_slug"`
	SeriesID string `toml:"series_id"`
}

// DefaultPolymarketFeeds lists the tag slugs, then the series ids, scanned on
// Polymarket.
func DefaultPolymarketFeeds() []PolymarketFeed {
	return []PolymarketFeed{
		{League: "NBA", TagSlug: "nba"},
		{League: "NHL", TagSlug: "nhl"},
		{League: "NFL", TagSlug: "nfl"},
		{League: "MLB", TagSlug: "mlb"},
		{League: "UFC", TagSlug: "ufc"},
		{League: "NCAAMB", TagSlug: "ncaa-basketball"},
		{League: "BOXING", TagSlug: "boxing"},
		{League: "TENNIS", TagSlug: "tennis"},

		{League: "NBA", SeriesID: "10345"},
		{League: "NFL", SeriesID: "10187"},
		{League: "NHL", SeriesID: "10346"},
		{League: "MLB", SeriesID: "10347"},
		{League: "UFC", SeriesID: "10348"},
		{League: "NCAAMB", SeriesID: "10349"},
		{League: "NCAAWB", SeriesID: "10350"},
		{League: "NCAAF", SeriesID: "10351"},
		{League: "BOXING", SeriesID: "10352"},
		{League: "TENNIS", SeriesID: "10353"},
	}
}

func (f PolymarketFeed) String() string {
	if f.TagSlug != "" {
		return "tag:" + f.TagSlug
	}
	return "series:" + f.SeriesID
}

// Phrases in a market question that mark it as something other than a
// straight win/loss market.
var nonMoneylinePhrases = []string{
	"o/u ", "over/under", "spread:", "spread ",
	"total:", "team total", "1h ", "1h:", "first half",
	"anytime touchdown", "rushing yards", "receiving yards", "passing yards",
	"passing touchdowns", "points over", "points under",
	"rebounds over", "assists over", "steals over", "blocks over",
	"mvp", "champion", "championship", "playoffs",
	"super bowl", "finals", "world series", "stanley cup",
	"regular season", "division winner", "conference winner",
}

var genericOutcomes = map[string]bool{
	"yes": true, "no": true, "over": true, "under": true, "draw": true,
}

var gameIndicators = []string{" vs ", " vs. ", " at "}

var slugLeagues = []struct{ prefix, league string }{
	{"nba-", "NBA"}, {"nhl-", "NHL"}, {"nfl-", "NFL"}, {"mlb-", "MLB"},
	{"ufc-", "UFC"}, {"wnba-", "WNBA"}, {"ncaab-", "NCAAMB"},
	{"ncaaf-", "NCAAF"}, {"ncaaw-", "NCAAWB"},
}

// GammaAPI is the part of the Gamma client used here.
type GammaAPI interface {
	GetEvents(ctx context.Context, q polymarket.EventsQuery) ([]polymarket.APIEvent, error)
}

// PolymarketConfig configures a PolymarketSource.
type PolymarketConfig struct {
	Feeds   []PolymarketFeed
	Workers int
	Retry   RetryPolicy
	// EasternOffset is subtracted from a market's end time to get the game's
	// local calendar day.
	EasternOffset time.Duration
	Throttle      *Throttle
	Logger        *slog.Logger
	// Now is the scan clock; events dated before its UTC day are dropped.
	Now func() time.Time
}

// PolymarketSource loads upcoming game moneylines from Polymarket.
type PolymarketSource struct {
	api    GammaAPI
	norm   *matching.Normalizer
	cfg    PolymarketConfig
	logger *slog.Logger
}

// NewPolymarketSource creates a PolymarketSource. An empty feed list falls
// back to DefaultPolymarketFeeds.
func NewPolymarketSource(api GammaAPI, norm *matching.Normalizer, cfg PolymarketConfig) *PolymarketSource {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = DefaultPolymarketFeeds()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 8
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PolymarketSource{
		api:    api,
		norm:   norm,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "polymarket_source")),
	}
}

// Venue implements Source.
func (s *PolymarketSource) Venue() domain.Venue { return domain.VenuePolymarket }

// Fetch returns the moneyline games of every feed, deduplicated by event slug
// with the first feed to list an event winning. Fetch only errors when every
// feed failed.
func (s *PolymarketSource) Fetch(ctx context.Context) ([]domain.CanonicalEvent, error) {
	today := matching.Day(s.cfg.Now().UTC())

	type game struct {
		slug  string
		event domain.CanonicalEvent
	}
	parts, failed := fanOut(ctx, s.cfg.Workers, len(s.cfg.Feeds), func(ctx context.Context, i int) ([]game, bool) {
		feed := s.cfg.Feeds[i]
		raw, err := s.fetchFeed(ctx, feed)
		if err != nil {
			s.logger.WarnContext(ctx, "feed fetch failed",
				slog.String("feed", feed.String()),
				slog.String("error", err.Error()),
			)
			return nil, false
		}
		var games []game
		for j := range raw {
			if ev, ok := ParsePolymarketEvent(&raw[j], feed.League, today, s.cfg.EasternOffset, s.norm); ok {
				games = append(games, game{slug: raw[j].Slug, event: ev})
			}
		}
		s.logger.DebugContext(ctx, "feed fetched",
			slog.String("feed", feed.String()),
			slog.Int("events", len(raw)),
			slog.Int("games", len(games)),
		)
		return games, true
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquisition: polymarket: %w", err)
	}
	if failed == len(s.cfg.Feeds) && failed > 0 {
		return nil, fmt.Errorf("acquisition: polymarket: all %d feeds failed: %w", failed, domain.ErrTransient)
	}

	all := flatten(parts)
	seen := make(map[string]struct{}, len(all))
	events := make([]domain.CanonicalEvent, 0, len(all))
	for _, g := range all {
		if g.slug != "" {
			if _, dup := seen[g.slug]; dup {
				continue
			}
			seen[g.slug] = struct{}{}
		}
		events = append(events, g.event)
	}

	s.logger.InfoContext(ctx, "polymarket games loaded",
		slog.Int("games", len(events)),
		slog.Int("feeds", len(s.cfg.Feeds)),
		slog.Int("failed_feeds", failed),
	)
	return events, nil
}

// fetchFeed pages through one feed until a short or empty page.
func (s *PolymarketSource) fetchFeed(ctx context.Context, feed PolymarketFeed) ([]polymarket.APIEvent, error) {
	var out []polymarket.APIEvent
	for offset := 0; ; offset += polymarketPageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var page []polymarket.APIEvent
		err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			if err := s.cfg.Throttle.Wait(ctx); err != nil {
				return err
			}
			var err error
			page, err = s.api.GetEvents(ctx, polymarket.EventsQuery{
				TagSlug:    feed.TagSlug,
				SeriesID:   feed.SeriesID,
				ActiveOnly: true,
				Limit:      polymarketPageSize,
				Offset:     offset,
			})
			return err
		})
		if err != nil {
			return nil, err
		}

		out = append(out, page...)
		if len(page) < polymarketPageSize {
			return out, nil
		}
	}
}

// ParsePolymarketEvent extracts the moneyline of one Gamma event. The first
// market that looks like a two-team win/loss market with both prices in
// (0,1) is used. Events whose game day falls before today are skipped.
func ParsePolymarketEvent(ev *polymarket.APIEvent, leagueHint string, today time.Time, easternOffset time.Duration, norm *matching.Normalizer) (domain.CanonicalEvent, bool) {
	date, ok := gameDay(ev.EndDate, easternOffset)
	if !ok || date.Before(today) {
		return domain.CanonicalEvent{}, false
	}
	league := leagueFromSlug(ev.Slug, leagueHint, norm)

	for i := range ev.Markets {
		m := &ev.Markets[i]
		if len(m.Outcomes) != 2 {
			continue
		}
		question := m.Question
		if question == "" {
			question = ev.Title
		}
		if !IsMoneyline(question, m.Outcomes) {
			continue
		}

		prices, parsed := m.OutcomePrices.Floats()
		if len(prices) < 2 || !parsed[0] || !parsed[1] {
			continue
		}
		if !domain.ValidPrice(prices[0]) || !domain.ValidPrice(prices[1]) {
			continue
		}

		out := domain.CanonicalEvent{
			Venue:  domain.VenuePolymarket,
			League: league,
			Date:   date,
			TeamA:  norm.NormalizeTeam(m.Outcomes[0]),
			TeamB:  norm.NormalizeTeam(m.Outcomes[1]),
			PriceA: prices[0],
			PriceB: prices[1],
			Volume: m.Volume.Value,
			Title:  ev.Title,
			URL:    polymarketEventURL + ev.Slug,
		}
		if len(m.ClobTokenIDs) == 2 {
			out.TokenA, out.TokenB = m.ClobTokenIDs[0], m.ClobTokenIDs[1]
		}
		return out, true
	}
	return domain.CanonicalEvent{}, false
}

// IsMoneyline reports whether a market is a straight "Team A vs Team B"
// win/loss market rather than a prop, total, spread or futures market.
func IsMoneyline(question string, outcomes []string) bool {
	q := strings.ToLower(question)
	for _, p := range nonMoneylinePhrases {
		if strings.Contains(q, p) {
			return false
		}
	}

	lower := make([]string, len(outcomes))
	for i, o := range outcomes {
		lower[i] = strings.ToLower(o)
		switch lower[i] {
		case "yes", "no", "over", "under":
			return false
		}
	}

	for _, ind := range gameIndicators {
		if strings.Contains(q, ind) {
			return true
		}
	}

	return len(outcomes) == 2 && outcomes[0] != outcomes[1] &&
		!genericOutcomes[lower[0]] && !genericOutcomes[lower[1]]
}

// gameDay converts a market end time to the game's calendar day by shifting
// it back by the Eastern offset. A bare date is taken as is.
func gameDay(endDate string, easternOffset time.Duration) (time.Time, bool) {
	if t, ok := matching.ParseTimestamp(endDate); ok {
		return matching.Day(t.UTC().Add(-easternOffset)), true
	}
	return matching.NormalizeDate(endDate)
}

func leagueFromSlug(slug, hint string, norm *matching.Normalizer) string {
	s := strings.ToLower(slug)
	for _, sl := range slugLeagues {
		if strings.HasPrefix(s, sl.prefix) {
			return sl.league
		}
	}
	return norm.NormalizeLeague(hint)
}
