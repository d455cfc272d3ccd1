package selection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
)

// Proposal is the decoded selection response
type Proposal struct {
	Positions  []ProposedPosition `json:"positions"`
	CashWeight *Weight            `json:"cash_weight"`
	Rationale  string             `json:"rationale"`
}

// ProposedPosition is one raw position as returned by the reasoning service
type ProposedPosition struct {
	Code       string `json:"code"`
	Instrument string `json:"instrument"` // code 대신 쓰는 응답도 있음
	Weight     Weight `json:"weight"`
	Reason     string `json:"reason"`
}

func (p ProposedPosition) code() string {
	if c := strings.TrimSpace(p.Code); c != "" {
		return c
	}
	return strings.TrimSpace(p.Instrument)
}

// Weight accepts 0.25, "0.25" and "25%"
type Weight float64

// UnmarshalJSON implements json.Unmarshaler
func (w *Weight) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*w = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		pct := strings.HasSuffix(s, "%")
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return fmt.Errorf("weight %q: %w", s, err)
		}
		if pct {
			v /= 100
		}
		*w = Weight(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*w = Weight(v)
	return nil
}

// PostProcess turns a raw proposal into an Allocation that satisfies the
// allocation contract regardless of what was proposed:
//   - codes outside ranked are dropped, duplicates merged
//   - negative weights become 0, zero weights are dropped
//   - only the maxPositions largest weights are kept
//   - sum > 1 is rescaled to exactly 1 with zero cash
//   - otherwise cash = 1 - sum unless a consistent cash was proposed
//
// Returns ErrMalformedOutput when positions were proposed but none survive,
// unless the proposal explicitly asks for all cash.
func PostProcess(p Proposal, ranked []contracts.Candidate, maxPositions int) (contracts.Allocation, error) {
	byCode := make(map[string]int, len(ranked))
	for i, c := range ranked {
		if _, dup := byCode[c.Code()]; !dup {
			byCode[c.Code()] = i
		}
	}

	type merged struct {
		rank    int
		weight  float64
		reasons []string
	}
	picks := make(map[string]*merged)
	for _, pp := range p.Positions {
		code := pp.code()
		idx, ok := byCode[code]
		if !ok {
			continue
		}
		w := float64(pp.Weight)
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		m, ok := picks[code]
		if !ok {
			m = &merged{rank: idx}
			picks[code] = m
		}
		m.weight += w
		if r := strings.TrimSpace(pp.Reason); r != "" {
			m.reasons = append(m.reasons, r)
		}
	}

	order := make([]string, 0, len(picks))
	for code, m := range picks {
		if m.weight > 0 {
			order = append(order, code)
		}
	}
	// 비중 큰 순, 동률이면 랭킹 순
	sort.Slice(order, func(i, j int) bool {
		a, b := picks[order[i]], picks[order[j]]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		return a.rank < b.rank
	})
	if maxPositions > 0 && len(order) > maxPositions {
		order = order[:maxPositions]
	}

	if len(order) == 0 && len(p.Positions) > 0 && !allCash(p.CashWeight) {
		return contracts.Allocation{}, fmt.Errorf("%w: no usable positions among %d proposed", contracts.ErrMalformedOutput, len(p.Positions))
	}
	if len(order) == 0 && p.CashWeight == nil {
		return contracts.Allocation{}, fmt.Errorf("%w: empty selection", contracts.ErrMalformedOutput)
	}

	sum := 0.0
	for _, code := range order {
		sum += picks[code].weight
	}
	scale := 1.0
	if sum > 1+contracts.WeightEpsilon {
		scale = 1 / sum
	}

	alloc := contracts.Allocation{
		Positions: make([]contracts.Position, 0, len(order)),
		Rationale: strings.TrimSpace(p.Rationale),
		Source:    contracts.SourceReasoning,
	}
	total := 0.0
	for _, code := range order {
		m := picks[code]
		c := ranked[m.rank]
		w := m.weight * scale
		total += w
		alloc.Positions = append(alloc.Positions, contracts.Position{
			Code:     code,
			Name:     c.Instrument.Name,
			Weight:   w,
			BuyPrice: c.LastPrice,
			Reason:   strings.Join(m.reasons, "; "),
		})
	}
	alloc.CashWeight = cashFor(total, p.CashWeight)
	return alloc, nil
}

// allCash reports whether the proposed cash is ≈1
func allCash(proposed *Weight) bool {
	return proposed != nil && math.Abs(float64(*proposed)-1) <= contracts.WeightEpsilon
}

// cashFor returns the residual cash for a position sum already <= 1
func cashFor(sum float64, proposed *Weight) float64 {
	residual := 1 - sum
	if residual < contracts.WeightEpsilon {
		return 0
	}
	if proposed != nil {
		c := float64(*proposed)
		if c >= 0 && c <= 1 && math.Abs(sum+c-1) <= contracts.WeightEpsilon {
			return c
		}
	}
	return residual
}

// Heuristic allocates the top maxPositions ranked candidates equally with
// zero cash. An empty ranking yields an all-cash allocation.
func Heuristic(ranked []contracts.Candidate, maxPositions int, reason string) contracts.Allocation {
	n := len(ranked)
	if maxPositions > 0 && n > maxPositions {
		n = maxPositions
	}

	alloc := contracts.Allocation{
		Positions: make([]contracts.Position, 0, n),
		Source:    contracts.SourceHeuristic,
	}
	if n == 0 {
		alloc.CashWeight = 1
		alloc.Rationale = "Heuristic fallback: no candidates, all cash"
		return alloc
	}

	w := 1.0 / float64(n)
	for _, c := range ranked[:n] {
		alloc.Positions = append(alloc.Positions, contracts.Position{
			Code:     c.Code(),
			Name:     c.Instrument.Name,
			Weight:   w,
			BuyPrice: c.LastPrice,
			Reason:   fmt.Sprintf("aggregate score %d", c.AggregateScore()),
		})
	}
	alloc.Rationale = fmt.Sprintf("Heuristic fallback (%s): top %d by aggregate score, equal weight", reason, n)
	return alloc
}
