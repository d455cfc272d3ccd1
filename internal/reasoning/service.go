// Package reasoning provides the natural-language reasoning service used by
// scoring, strategy and selection, plus decorators for retry, pacing,
// per-call timeout and metrics.
package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// ModelConfig maps tiers to provider model names
type ModelConfig struct {
	Cheap  string
	Strong string
}

// Model returns the model name for a tier
func (m ModelConfig) Model(tier contracts.ModelTier) string {
	if tier == contracts.TierStrong && m.Strong != "" {
		return m.Strong
	}
	if m.Cheap != "" {
		return m.Cheap
	}
	return m.Strong
}

// Disabled always answers ErrReasoningDisabled
type Disabled struct{}

func (Disabled) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	return "", contracts.ErrReasoningDisabled
}

// IsDisabled reports whether svc is administratively off
func IsDisabled(svc contracts.ReasoningService) bool {
	if svc == nil {
		return true
	}
	if _, ok := svc.(Disabled); ok {
		return true
	}
	if w, ok := svc.(interface{ Unwrap() contracts.ReasoningService }); ok {
		return IsDisabled(w.Unwrap())
	}
	return false
}

// Timed applies a per-call timeout
type Timed struct {
	next    contracts.ReasoningService
	timeout time.Duration
}

// WithTimeout wraps svc with a per-call deadline
func WithTimeout(svc contracts.ReasoningService, timeout time.Duration) *Timed {
	return &Timed{next: svc, timeout: timeout}
}

func (t *Timed) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	if t.timeout <= 0 {
		return t.next.Ask(ctx, prompt, tier)
	}
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Ask(cctx, prompt, tier)
}

func (t *Timed) Unwrap() contracts.ReasoningService { return t.next }

// Instrumented records call outcomes
type Instrumented struct {
	next    contracts.ReasoningService
	metrics *metrics.Recorder
}

// WithMetrics wraps svc with call counters
func WithMetrics(svc contracts.ReasoningService, rec *metrics.Recorder) *Instrumented {
	return &Instrumented{next: svc, metrics: rec}
}

func (m *Instrumented) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	out, err := m.next.Ask(ctx, prompt, tier)
	m.metrics.RecordReasoningCall(string(tier), outcome(err))
	return out, err
}

func (m *Instrumented) Unwrap() contracts.ReasoningService { return m.next }

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isDisabledErr(err):
		return "disabled"
	default:
		return "error"
	}
}

// unavailable wraps a provider failure into the taxonomy
func unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", contracts.ErrReasoningUnavailable, fmt.Sprintf(format, args...))
}
