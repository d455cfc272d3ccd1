package strategy

import (
	"fmt"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
)

func buildPrompt(history []contracts.TrajectoryEntry, overview string) string {
	var b strings.Builder

	b.WriteString("You set the daily stock-selection strategy for a Korean equity portfolio.\n")
	b.WriteString("Candidates are scored 1-10 on six dimensions:\n")
	for _, d := range contracts.Dimensions {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	b.WriteString("volatility_risk is already oriented so that 10 means most stable.\n\n")

	b.WriteString("MARKET OVERVIEW:\n")
	if strings.TrimSpace(overview) == "" {
		b.WriteString("(unavailable)\n")
	} else {
		b.WriteString(overview)
		b.WriteString("\n")
	}

	b.WriteString("\nRECENT DECISIONS (most recent first):\n")
	if len(history) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, e := range history {
		fmt.Fprintf(&b, "- %s [%s] perf=%s\n  strategy: %s\n", e.Date, e.Status, formatPerf(e.Perf), e.Strategy)
		for _, p := range e.Positions {
			fmt.Fprintf(&b, "  %s %s w=%.2f return=%s\n", p.Code, p.Name, p.Weight, formatPerf(p.ReturnPct))
		}
	}

	b.WriteString(`
Reflect on which dimensions worked, then propose today's strategy.
Respond with JSON only:
{"strategy": "<one paragraph instruction for the selector>", "emphasis": {"<dimension>": <weight>, ...}}
Emphasis weights are non-negative and may use any subset of the six dimensions.`)
	return b.String()
}

func formatPerf(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *p)
}
