package selection

import (
	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
)

// Screener drops candidates that cannot become positions
// ⭐ SSOT: 선택 전 hard cut 은 여기서만
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a screener
func NewScreener(log *logger.Logger) *Screener {
	return &Screener{logger: log.WithModule("screener")}
}

// Screen keeps candidates with a usable price and a unique code, in input
// order. A position without a buy price can never be backfilled.
func (s *Screener) Screen(cands []contracts.Candidate) []contracts.Candidate {
	passed := make([]contracts.Candidate, 0, len(cands))
	filtered := make(map[string]int)
	seen := make(map[string]bool, len(cands))

	for _, c := range cands {
		switch {
		case c.Code() == "":
			filtered["no_code"]++
		case seen[c.Code()]:
			filtered["duplicate"]++
		case c.LastPrice <= 0:
			filtered["no_price"]++
		default:
			seen[c.Code()] = true
			passed = append(passed, c)
		}
	}

	if len(filtered) > 0 {
		fields := map[string]interface{}{"input": len(cands), "passed": len(passed)}
		for reason, n := range filtered {
			fields["filtered_"+reason] = n
		}
		s.logger.WithFields(fields).Info("Candidates screened")
	}
	return passed
}
