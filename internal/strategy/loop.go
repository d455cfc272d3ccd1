// Package strategy proposes each run's selection strategy from the recent
// trajectory and a compact market overview.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/reasoning"
	"github.com/wonny/threes/backend/internal/scoring"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// HistorySize is how many past entries the loop sees
const HistorySize = 5

// Config holds strategy defaults
type Config struct {
	DefaultText     string                          // 기본 전략 문구
	DefaultEmphasis map[contracts.Dimension]float64 // 기본 전략의 emphasis (없어도 됨)
}

// Loop is the strategy feedback loop
// ⭐ SSOT: S4 전략 제안은 이 루프에서만
type Loop struct {
	svc     contracts.ReasoningService
	config  Config
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewLoop creates a feedback loop
func NewLoop(svc contracts.ReasoningService, cfg Config, rec *metrics.Recorder, log *logger.Logger) *Loop {
	if svc == nil {
		svc = reasoning.Disabled{}
	}
	if strings.TrimSpace(cfg.DefaultText) == "" {
		cfg.DefaultText = contracts.DefaultStrategyText
	}
	return &Loop{svc: svc, config: cfg, logger: log.WithModule("strategy"), metrics: rec}
}

type proposal struct {
	Strategy string             `json:"strategy"`
	Emphasis map[string]float64 `json:"emphasis"`
}

// Propose returns the strategy for date. Only entries dated before date
// are used, most recent first, at most HistorySize. It never fails: a
// disabled or failing service yields the previous strategy text, else the
// conservative default.
func (l *Loop) Propose(ctx context.Context, date string, log *contracts.TrajectoryLog, overview string) contracts.Strategy {
	history := priorEntries(log, date, HistorySize)

	if reasoning.IsDisabled(l.svc) {
		return l.fallback(date, history, contracts.ErrReasoningDisabled)
	}

	raw, err := l.svc.Ask(ctx, buildPrompt(history, overview), contracts.TierStrong)
	if err != nil {
		return l.fallback(date, history, fmt.Errorf("%w: %v", contracts.ErrStrategyUnavailable, err))
	}

	var p proposal
	if err := scoring.DecodeObject(raw, &p); err != nil {
		return l.fallback(date, history, err)
	}
	text := strings.TrimSpace(p.Strategy)
	if text == "" {
		return l.fallback(date, history, fmt.Errorf("%w: empty strategy", contracts.ErrMalformedOutput))
	}

	return contracts.Strategy{
		Date:     date,
		Text:     text,
		Emphasis: ParseEmphasis(p.Emphasis),
		Source:   contracts.SourceReasoning,
	}
}

func (l *Loop) fallback(date string, history []contracts.TrajectoryEntry, cause error) contracts.Strategy {
	s := contracts.Strategy{Date: date}
	if len(history) > 0 && strings.TrimSpace(history[0].Strategy) != "" {
		s.Text = history[0].Strategy
		s.Emphasis = contracts.NormalizeEmphasis(history[0].Emphasis)
		s.Source = contracts.SourcePrevious
	} else {
		s.Text = l.config.DefaultText
		s.Emphasis = contracts.NormalizeEmphasis(l.config.DefaultEmphasis)
		s.Source = contracts.SourceDefault
	}

	l.metrics.RecordFallback(contracts.StageStrategy.ShortName(), string(s.Source))
	entry := l.logger.WithField("source", string(s.Source))
	if errors.Is(cause, contracts.ErrReasoningDisabled) {
		entry.Info("Reasoning disabled, strategy fallback")
	} else {
		entry.WithError(cause).Warn("Strategy proposal failed, using fallback")
	}
	return s
}

// ParseEmphasis validates a raw emphasis map: unknown dimensions and
// negative or non-finite weights are dropped, the rest renormalized to sum
// 1. Returns nil when nothing usable remains.
func ParseEmphasis(raw map[string]float64) map[contracts.Dimension]float64 {
	if len(raw) == 0 {
		return nil
	}
	typed := make(map[contracts.Dimension]float64, len(raw))
	for k, v := range raw {
		if d, ok := contracts.ParseDimension(k); ok {
			typed[d] += v
		}
	}
	return contracts.NormalizeEmphasis(typed)
}

// priorEntries returns entries dated before date, most recent first
func priorEntries(log *contracts.TrajectoryLog, date string, n int) []contracts.TrajectoryEntry {
	if log == nil {
		return nil
	}
	out := make([]contracts.TrajectoryEntry, 0, n)
	for _, e := range log.Tail(log.Len()) {
		if e.Date >= date {
			continue
		}
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out
}
