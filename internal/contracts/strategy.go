package contracts

// DefaultStrategyText is used when no reasoning is available and no prior
// strategy exists.
const DefaultStrategyText = "Conservative default: prefer candidates with high volatility_risk (more stable), " +
	"penalize high volatility, and require reasonable financial_health before chasing price_momentum."

// Strategy is a run's selection instruction (S4 → S5)
// ⭐ SSOT: S4 → S5 전략 전달
type Strategy struct {
	Date     string                `json:"date"`
	Text     string                `json:"text"`
	Emphasis map[Dimension]float64 `json:"emphasis,omitempty"` // 합 = 1, 없을 수 있음
	Source   Source                `json:"source"`
}

// HasEmphasis reports whether a usable emphasis mapping is attached
func (s *Strategy) HasEmphasis() bool {
	return len(s.Emphasis) > 0
}
