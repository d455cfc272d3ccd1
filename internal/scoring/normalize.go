package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
)

// synonyms lists, per canonical dimension, the accepted keys in priority
// order. The canonical name always comes first.
var synonyms = map[contracts.Dimension][]string{
	contracts.DimFinancialHealth: {
		"financial_health", "financial", "financials", "financial_strength",
		"profitability", "fundamentals", "fundamental", "balance_sheet", "health",
	},
	contracts.DimGrowthPotential: {
		"growth_potential", "growth", "growth_prospects", "earnings_growth", "potential",
	},
	contracts.DimNewsSentiment: {
		"news_sentiment", "sentiment", "news", "media_sentiment", "market_sentiment",
	},
	contracts.DimNewsImpact: {
		"news_impact", "impact", "event_impact", "catalyst", "catalysts",
	},
	contracts.DimPriceMomentum: {
		"price_momentum", "momentum", "trend", "price_trend", "technical", "technicals",
	},
	// 10 = 가장 안정적. "volatility", "risk" 는 방향이 반대라 받지 않음
	contracts.DimVolatilityRisk: {
		"volatility_risk", "stability", "price_stability", "low_volatility", "safety",
	},
}

// Synonyms returns the lookup order for a dimension
func Synonyms(d contracts.Dimension) []string {
	return append([]string(nil), synonyms[d]...)
}

// Normalized is the result of the synonym pass
type Normalized struct {
	Scores         contracts.ScoreVector
	Justifications map[contracts.Dimension]string
	Matched        int // 실제 값으로 채워진 차원 수
}

// Normalize maps a loosely-keyed evaluator object onto the six canonical
// dimensions. For each dimension the first synonym present with a numeric
// value wins; otherwise the dimension is 5. Values are rounded and clamped
// to [1,10]. Pure: same input, same output.
func Normalize(raw map[string]interface{}) Normalized {
	keyed := make(map[string]interface{}, len(raw))
	// 키 정규화 후 충돌 시 사전순 첫 원본 키가 이김 (map 순회 순서 무관)
	origin := make(map[string]string, len(raw))
	for k, v := range raw {
		nk := normalizeKey(k)
		if prev, ok := origin[nk]; ok && prev < k {
			continue
		}
		origin[nk] = k
		keyed[nk] = v
	}

	out := Normalized{
		Scores:         make(contracts.ScoreVector, len(contracts.Dimensions)),
		Justifications: make(map[contracts.Dimension]string),
	}
	for _, d := range contracts.Dimensions {
		out.Scores[d] = contracts.ScoreNeutral
		for _, key := range synonyms[d] {
			v, ok := keyed[key]
			if !ok {
				continue
			}
			score, reason, ok := numericValue(v)
			if !ok {
				continue
			}
			out.Scores[d] = contracts.ClampScoreFloat(score)
			if reason != "" {
				out.Justifications[d] = reason
			}
			out.Matched++
			break
		}
	}
	return out
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	return k
}

// numericValue accepts numbers, numeric strings ("8", "8/10") and
// {"score": n, "reason": "..."} objects
func numericValue(v interface{}) (float64, string, bool) {
	switch x := v.(type) {
	case float64:
		return x, "", finite(x)
	case json.Number:
		f, err := x.Float64()
		return f, "", err == nil && finite(f)
	case int:
		return float64(x), "", true
	case string:
		f, ok := parseNumericString(x)
		return f, "", ok
	case map[string]interface{}:
		for _, k := range []string{"score", "value", "rating"} {
			if inner, ok := x[k]; ok {
				f, _, ok := numericValue(inner)
				if !ok {
					return 0, "", false
				}
				return f, reasonOf(x), true
			}
		}
	}
	return 0, "", false
}

func reasonOf(m map[string]interface{}) string {
	for _, k := range []string{"reason", "justification", "rationale", "explanation"} {
		if s, ok := m[k].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
