package audit

import (
	"math"
)

// TailConfidence is the confidence level of the reported VaR
const TailConfidence = 0.95

// historicalVaR returns VaR and CVaR (expected shortfall) by historical
// simulation over ascending-sorted returns. Losses are reported as positive
// numbers; no loss in the tail yields 0.
func historicalVaR(sorted []float64, confidence float64) (float64, float64) {
	if len(sorted) == 0 {
		return 0, 0
	}

	// 예: 95% VaR = 하위 5% 백분위수
	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	tail := sum / float64(idx+1)

	return math.Max(0, -sorted[idx]), math.Max(0, -tail)
}
