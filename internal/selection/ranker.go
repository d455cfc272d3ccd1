// Package selection turns ranked candidates and a strategy into an
// Allocation: at most N weighted positions plus residual cash.
package selection

import (
	"sort"

	"github.com/wonny/threes/backend/internal/contracts"
)

// Rank orders candidates by the plain ScoreVector sum, descending, ties by
// code. volatility_risk is summed as-is (higher = more stable).
// ⭐ SSOT: 기본 랭킹은 여기서만
func Rank(cands []contracts.Candidate) []contracts.Candidate {
	ranked := make([]contracts.Candidate, len(cands))
	copy(ranked, cands)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].AggregateScore(), ranked[j].AggregateScore()
		if si != sj {
			return si > sj
		}
		return ranked[i].Code() < ranked[j].Code()
	})
	return ranked
}

// WeightedRank orders candidates by ScoreVector.Weighted(emphasis).
// Every dimension counts as higher = better, volatility_risk included, so
// no dimension is inverted. An empty emphasis falls back to Rank.
func WeightedRank(cands []contracts.Candidate, emphasis map[contracts.Dimension]float64) []contracts.Candidate {
	emphasis = contracts.NormalizeEmphasis(emphasis)
	if len(emphasis) == 0 {
		return Rank(cands)
	}

	ranked := make([]contracts.Candidate, len(cands))
	copy(ranked, cands)

	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := ranked[i].Scores.Weighted(emphasis), ranked[j].Scores.Weighted(emphasis)
		if wi != wj {
			return wi > wj
		}
		si, sj := ranked[i].AggregateScore(), ranked[j].AggregateScore()
		if si != sj {
			return si > sj
		}
		return ranked[i].Code() < ranked[j].Code()
	})
	return ranked
}
