package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// alertListed is how many games an alert body spells out.
const alertListed = 3

// AlertTitle is the headline for a scan with n profitable games.
func AlertTitle(n int) string {
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Sprintf("ARBITRAGE ALERT: %d profitable game%s found!", n, plural)
}

// AlertBody lists the first few opportunities as
// "{title} - $0.85 cost (+15c profit)" followed by a count of the rest.
func AlertBody(opps []domain.OpportunitySummary) string {
	lines := make([]string, 0, alertListed+1)
	for i, o := range opps {
		if i == alertListed {
			lines = append(lines, fmt.Sprintf("...and %d more", len(opps)-alertListed))
			break
		}
		lines = append(lines, fmt.Sprintf("%s - $%.2f cost (+%dc profit)", o.Title, o.Cost, ProfitCents(o.Cost)))
	}
	return strings.Join(lines, "\n")
}

// ProfitCents is the whole cents left of a $1 payout after paying cost.
func ProfitCents(cost float64) int64 {
	return decimal.NewFromInt(1).
		Sub(decimal.NewFromFloat(cost)).
		Shift(2).
		Floor().
		IntPart()
}
