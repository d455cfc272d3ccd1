package contracts

import (
	"fmt"
	"math"
)

// WeightEpsilon is the tolerance for weight-sum checks
const WeightEpsilon = 1e-6

// Allocation is the chosen weighted subset plus residual cash (S5 → S6)
// ⭐ SSOT: S5 → S6 포트폴리오 전달
// 계약: 모든 weight >= 0, sum(weights) <= 1, sum + cash ≈ 1
type Allocation struct {
	Positions  []Position `json:"positions"`
	CashWeight float64    `json:"cash_weight"` // 현금 비중 (0.0 ~ 1.0)
	Rationale  string     `json:"rationale"`
	Source     Source     `json:"source"`
}

// Position is one allocated instrument
type Position struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`    // 비중 (0.0 ~ 1.0)
	BuyPrice float64 `json:"buy_price"` // 결정 시점 가격
	Reason   string  `json:"reason,omitempty"`
}

// TotalWeight returns the sum of all position weights
func (a *Allocation) TotalWeight() float64 {
	total := 0.0
	for _, pos := range a.Positions {
		total += pos.Weight
	}
	return total
}

// Count returns the number of positions
func (a *Allocation) Count() int {
	return len(a.Positions)
}

// GetPosition finds a position by stock code
func (a *Allocation) GetPosition(code string) (*Position, bool) {
	for i := range a.Positions {
		if a.Positions[i].Code == code {
			return &a.Positions[i], true
		}
	}
	return nil, false
}

// Validate checks the allocation invariants
func (a *Allocation) Validate(maxPositions int) error {
	if maxPositions > 0 && len(a.Positions) > maxPositions {
		return fmt.Errorf("too many positions: %d > %d", len(a.Positions), maxPositions)
	}
	seen := make(map[string]bool, len(a.Positions))
	for _, pos := range a.Positions {
		if pos.Weight < 0 || math.IsNaN(pos.Weight) {
			return fmt.Errorf("negative weight for %s: %f", pos.Code, pos.Weight)
		}
		if seen[pos.Code] {
			return fmt.Errorf("duplicate position: %s", pos.Code)
		}
		seen[pos.Code] = true
	}
	sum := a.TotalWeight()
	if sum > 1+WeightEpsilon {
		return fmt.Errorf("weights sum %.6f exceeds 1", sum)
	}
	if a.CashWeight < 0 || a.CashWeight > 1 {
		return fmt.Errorf("cash weight out of range: %f", a.CashWeight)
	}
	if math.Abs(sum+a.CashWeight-1) > WeightEpsilon {
		return fmt.Errorf("weights %.6f + cash %.6f != 1", sum, a.CashWeight)
	}
	return nil
}
