package contracts

import (
	"math"
	"sort"
	"strings"
)

// Dimension is one of the six fixed evaluation axes
type Dimension string

const (
	DimFinancialHealth Dimension = "financial_health"
	DimGrowthPotential Dimension = "growth_potential"
	DimNewsSentiment   Dimension = "news_sentiment"
	DimNewsImpact      Dimension = "news_impact"
	DimPriceMomentum   Dimension = "price_momentum"
	// DimVolatilityRisk: 높을수록 안정적 (higher = more stable).
	// 모든 consumer 는 이 방향을 그대로 유지해야 함.
	DimVolatilityRisk Dimension = "volatility_risk"
)

// Score bounds
const (
	ScoreMin     = 1
	ScoreMax     = 10
	ScoreNeutral = 5
)

// Dimensions lists the canonical dimensions in fixed order
// ⭐ SSOT: 평가 차원 순서는 여기서만
var Dimensions = []Dimension{
	DimFinancialHealth,
	DimGrowthPotential,
	DimNewsSentiment,
	DimNewsImpact,
	DimPriceMomentum,
	DimVolatilityRisk,
}

// ParseDimension matches a canonical dimension name (case/space insensitive)
func ParseDimension(s string) (Dimension, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	for _, d := range Dimensions {
		if string(d) == key {
			return d, true
		}
	}
	return "", false
}

// ScoreVector maps each of the six dimensions to an integer in [1,10]
type ScoreVector map[Dimension]int

// NeutralScoreVector returns {d: 5} for every dimension
func NeutralScoreVector() ScoreVector {
	v := make(ScoreVector, len(Dimensions))
	for _, d := range Dimensions {
		v[d] = ScoreNeutral
	}
	return v
}

// ClampScore clamps a value into [ScoreMin, ScoreMax]
func ClampScore(v int) int {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}

// ClampScoreFloat rounds half away from zero, then clamps
func ClampScoreFloat(v float64) int {
	if math.IsNaN(v) {
		return ScoreNeutral
	}
	if math.IsInf(v, 1) {
		return ScoreMax
	}
	if math.IsInf(v, -1) {
		return ScoreMin
	}
	return ClampScore(int(math.Round(v)))
}

// Valid checks all six dimensions are present and in range
func (s ScoreVector) Valid() bool {
	if len(s) != len(Dimensions) {
		return false
	}
	for _, d := range Dimensions {
		v, ok := s[d]
		if !ok || v < ScoreMin || v > ScoreMax {
			return false
		}
	}
	return true
}

// Sum returns the plain aggregate used for default ranking.
// volatility_risk 는 이미 "높을수록 안전"이므로 반전 없이 그대로 더한다.
func (s ScoreVector) Sum() int {
	total := 0
	for _, d := range Dimensions {
		total += s[d]
	}
	return total
}

// Weighted returns sum(score[d] * emphasis[d]).
// Sign convention: every dimension is "higher = better" including
// volatility_risk (higher = more stable), so no dimension is inverted.
func (s ScoreVector) Weighted(emphasis map[Dimension]float64) float64 {
	total := 0.0
	for _, d := range Dimensions {
		total += float64(s[d]) * emphasis[d]
	}
	return total
}

// Clone returns a copy
func (s ScoreVector) Clone() ScoreVector {
	out := make(ScoreVector, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// NormalizeEmphasis keeps known dimensions with positive finite weights and
// rescales them to sum to 1. Returns nil when nothing usable remains.
func NormalizeEmphasis(raw map[Dimension]float64) map[Dimension]float64 {
	total := 0.0
	kept := make(map[Dimension]float64)
	for _, d := range Dimensions {
		w, ok := raw[d]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			continue
		}
		kept[d] = w
		total += w
	}
	if total <= 0 {
		return nil
	}
	for d, w := range kept {
		kept[d] = w / total
	}
	return kept
}

// SortedDimensions returns dimensions ordered by emphasis weight descending
func SortedDimensions(emphasis map[Dimension]float64) []Dimension {
	dims := make([]Dimension, 0, len(emphasis))
	for d := range emphasis {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool {
		if emphasis[dims[i]] != emphasis[dims[j]] {
			return emphasis[dims[i]] > emphasis[dims[j]]
		}
		return dims[i] < dims[j]
	})
	return dims
}
