// Package report renders scan reports for logs, terminals and alerts.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

const lineWidth = 110

var printer = message.NewPrinter(language.English)

// Text renders r as the multi-line scan report: stage counts, then the
// profitable games grouped under league headers. Opportunities are expected
// in report order (league, date, team).
func Text(r domain.Report, opts matching.ReportOptions) string {
	var b strings.Builder
	sep := strings.Repeat("=", lineWidth)

	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "  MONEYLINE BETS ON BOTH KALSHI & POLYMARKET")
	fmt.Fprintf(&b, "  %-32s%d\n", "Total matching games found:", r.Counts.Matched)
	fmt.Fprintf(&b, "  %-32s%d\n", fmt.Sprintf("High-confidence (>%.0f%%):", opts.ConfidenceFloor*100), r.Counts.HighConfidence)
	fmt.Fprintf(&b, "  %-32s%d\n", fmt.Sprintf("Profitable (cost < $%.2f):", opts.CostCeiling), r.Counts.Profitable)
	fmt.Fprintln(&b, sep)

	if len(r.Opportunities) == 0 {
		fmt.Fprintf(&b, "\n  No profitable arbitrage opportunities found (all combined ask costs >= $%.2f).\n", opts.CostCeiling)
		fmt.Fprintf(&b, "\n%s\n", sep)
		return b.String()
	}

	league := ""
	for i, o := range r.Opportunities {
		if i == 0 || o.League != league {
			league = o.League
			fmt.Fprintf(&b, "\n  ---- %s ----\n", league)
		}
		writeOpportunity(&b, i+1, o)
	}

	fmt.Fprintf(&b, "\n%s\n", sep)
	fmt.Fprintf(&b, "\n  >>> %d profitable arbitrage opportunities found!\n", len(r.Opportunities))
	return b.String()
}

func writeOpportunity(b *strings.Builder, n int, o domain.OpportunitySummary) {
	fmt.Fprintf(b, "\n  %d. %s  (%s)\n", n, o.Title, o.Date)
	fmt.Fprintf(b, "     Match confidence: %.0f%%\n", o.Confidence*100)
	fmt.Fprintf(b, "     %20s  %20s  %20s\n", "", "Team 1", "Team 2")
	fmt.Fprintf(b, "     %20s  %20s  %20s\n", "Kalshi (ask)", Price(o.KalshiPrice1), Price(o.KalshiPrice2))
	fmt.Fprintf(b, "     %20s  %20s  %20s\n", "Polymarket (ask)", Price(o.PolyPrice1), Price(o.PolyPrice2))
	fmt.Fprintf(b, "     Kalshi teams:     %s / %s\n", o.KalshiTeam1, o.KalshiTeam2)
	fmt.Fprintf(b, "     Poly teams:       %s / %s\n", o.PolymarketTeam1, o.PolymarketTeam2)
	fmt.Fprintf(b, "     Kalshi volume:    %s    | %s\n", Volume(o.KalshiVolume), o.KalshiURL)
	fmt.Fprintf(b, "     Poly volume:      %s    | %s\n", Volume(o.PolyVolume), o.PolyURL)
	fmt.Fprintf(b, "       *** ARBITRAGE: combined $%.2f ***\n", o.Cost)
}

// Price formats an ask as "$0.45", or "N/A" when the side has no quote.
func Price(p float64) string {
	if !domain.ValidPrice(p) {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", p)
}

// Volume formats a traded volume as a whole number with thousands separators.
func Volume(v float64) string {
	return printer.Sprintf("%d", int64(v))
}
