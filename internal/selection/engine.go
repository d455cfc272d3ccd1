package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/reasoning"
	"github.com/wonny/threes/backend/internal/scoring"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// DefaultOfferSize bounds how many ranked candidates are shown to reasoning
const DefaultOfferSize = 20

// Config holds selection knobs
type Config struct {
	MaxPositions int // MAX_PORTFOLIO_STOCKS
	OfferSize    int // reasoning 에 넘기는 상위 후보 수
}

// Engine picks the Allocation
// ⭐ SSOT: S5 포트폴리오 선택은 이 엔진에서만
type Engine struct {
	svc     contracts.ReasoningService
	config  Config
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewEngine creates a selection engine
func NewEngine(svc contracts.ReasoningService, cfg Config, rec *metrics.Recorder, log *logger.Logger) *Engine {
	if svc == nil {
		svc = reasoning.Disabled{}
	}
	if cfg.MaxPositions < 1 {
		cfg.MaxPositions = 5
	}
	if cfg.OfferSize < cfg.MaxPositions {
		cfg.OfferSize = DefaultOfferSize
		if cfg.OfferSize < cfg.MaxPositions {
			cfg.OfferSize = cfg.MaxPositions
		}
	}
	return &Engine{svc: svc, config: cfg, logger: log.WithModule("selection"), metrics: rec}
}

// MaxPositions returns the position cap
func (e *Engine) MaxPositions() int {
	return e.config.MaxPositions
}

// Select returns the allocation for ranked candidates (already in Rank
// order). It never fails: disabled, failing or malformed reasoning falls
// back to Heuristic.
func (e *Engine) Select(ctx context.Context, strategy contracts.Strategy, ranked []contracts.Candidate) contracts.Allocation {
	if len(ranked) == 0 {
		return e.fallback(ranked, fmt.Errorf("%w: no candidates", contracts.ErrSelectionUnavailable))
	}
	if reasoning.IsDisabled(e.svc) {
		return e.fallback(ranked, contracts.ErrReasoningDisabled)
	}

	offered := ranked
	if len(offered) > e.config.OfferSize {
		offered = offered[:e.config.OfferSize]
	}

	raw, err := e.svc.Ask(ctx, buildPrompt(strategy, offered, e.config.MaxPositions), contracts.TierStrong)
	if err != nil {
		return e.fallback(ranked, fmt.Errorf("%w: %v", contracts.ErrSelectionUnavailable, err))
	}

	var p Proposal
	if err := scoring.DecodeObject(raw, &p); err != nil {
		return e.fallback(ranked, err)
	}
	alloc, err := PostProcess(p, offered, e.config.MaxPositions)
	if err != nil {
		return e.fallback(ranked, err)
	}

	e.logger.WithFields(map[string]interface{}{
		"positions": alloc.Count(),
		"cash":      alloc.CashWeight,
		"offered":   len(offered),
	}).Info("Selection completed")
	return alloc
}

func (e *Engine) fallback(ranked []contracts.Candidate, cause error) contracts.Allocation {
	reason := "selection unavailable"
	if errors.Is(cause, contracts.ErrReasoningDisabled) {
		reason = "reasoning disabled"
		e.logger.Info("Reasoning disabled, heuristic selection")
	} else {
		if errors.Is(cause, contracts.ErrMalformedOutput) {
			reason = "malformed selection output"
		}
		e.logger.WithError(cause).Warn("Selection failed, using heuristic")
	}
	e.metrics.RecordFallback(contracts.StageSelect.ShortName(), string(contracts.SourceHeuristic))
	return Heuristic(ranked, e.config.MaxPositions, reason)
}
