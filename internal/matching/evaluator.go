package matching

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var worstPrice = decimal.NewFromInt(1)

// Cost returns the cheaper of the two cross-venue hedges for a match: buy
// team 1 on venue A with team 2 on venue B, or the reverse. Venue-B prices are
// aligned to venue A's team order first. A missing or out-of-range price
// counts as 1, so an incomplete quote can never look profitable.
func Cost(m domain.MatchRecord) float64 {
	b1, b2 := m.AlignedB()
	hedge1 := priceOrWorst(m.A.PriceA).Add(priceOrWorst(b2))
	hedge2 := priceOrWorst(m.A.PriceB).Add(priceOrWorst(b1))
	return decimal.Min(hedge1, hedge2).InexactFloat64()
}

// Evaluate annotates every match with its cost, keeping input order.
func Evaluate(matches []domain.MatchRecord) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(matches))
	for _, m := range matches {
		out = append(out, domain.Opportunity{Match: m, Cost: Cost(m)})
	}
	return out
}

func priceOrWorst(p float64) decimal.Decimal {
	if !domain.ValidPrice(p) {
		return worstPrice
	}
	return decimal.NewFromFloat(p)
}
