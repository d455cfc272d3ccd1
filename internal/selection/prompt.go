package selection

import (
	"fmt"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
)

const maxRationaleRunes = 160

func buildPrompt(strategy contracts.Strategy, offered []contracts.Candidate, maxPositions int) string {
	var b strings.Builder

	b.WriteString("You build today's Korean equity portfolio from scored candidates.\n\n")
	b.WriteString("STRATEGY:\n")
	b.WriteString(strategy.Text)
	b.WriteString("\n")

	if strategy.HasEmphasis() {
		b.WriteString("\nEMPHASIS:")
		for _, d := range contracts.SortedDimensions(strategy.Emphasis) {
			fmt.Fprintf(&b, " %s=%.2f", d, strategy.Emphasis[d])
		}
		b.WriteString("\n")
	}

	b.WriteString("\nCANDIDATES (scores 1-10, volatility_risk 10 = most stable):\n")
	for _, c := range offered {
		fmt.Fprintf(&b, "- %s %s price=%.0f 5d=%+.2f%%", c.Code(), c.Instrument.Name, c.LastPrice, c.Return5D)
		for _, d := range contracts.Dimensions {
			fmt.Fprintf(&b, " %s=%d", d, c.Scores[d])
		}
		fmt.Fprintf(&b, " sum=%d", c.AggregateScore())
		if strategy.HasEmphasis() {
			fmt.Fprintf(&b, " weighted=%.2f", c.Scores.Weighted(strategy.Emphasis))
		}
		if c.Source.IsFallback() {
			fmt.Fprintf(&b, " [%s scores]", c.Source)
		}
		if r := clip(c.Rationale, maxRationaleRunes); r != "" {
			fmt.Fprintf(&b, "\n  %s", r)
		}
		b.WriteString("\n")
	}

	if strategy.HasEmphasis() {
		codes := make([]string, 0, len(offered))
		for _, c := range WeightedRank(offered, strategy.Emphasis) {
			codes = append(codes, c.Code())
		}
		fmt.Fprintf(&b, "\nBy emphasis-weighted score: %s\n", strings.Join(codes, ", "))
	}

	fmt.Fprintf(&b, `
Pick at most %d candidates by code. Weights are fractions of the portfolio,
non-negative, summing to at most 1; the remainder stays in cash.
Respond with JSON only:
{"positions": [{"code": "<code>", "weight": <0-1>, "reason": "<short>"}], "cash_weight": <0-1>, "rationale": "<short>"}`, maxPositions)
	return b.String()
}

// clip shortens s to n runes
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
