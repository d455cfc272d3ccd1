package reasoning

import (
	"context"
	"fmt"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// NewFromConfig wires provider, per-call timeout, pacing, retry and metrics.
// A disabled or key-less provider yields Disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config, rec *metrics.Recorder, log *logger.Logger) (contracts.ReasoningService, error) {
	rc := cfg.Reasoning
	models := ModelConfig{Cheap: rc.CheapModel, Strong: rc.StrongModel}

	var provider contracts.ReasoningService
	switch rc.Provider {
	case config.ProviderDisabled, "":
		log.WithModule("reasoning").Info("Reasoning disabled, heuristic fallbacks will be used")
		return Disabled{}, nil
	case config.ProviderOpenAI:
		httpClient := httputil.NewWithTimeout(cfg, log, rc.Timeout).DisableRetry()
		provider = NewOpenAIClient(httpClient, rc.OpenAIKey, rc.OpenAIBaseURL, models, rc.Temperature, log)
	case config.ProviderGemini:
		g, err := NewGeminiClient(ctx, rc.GeminiKey, models, rc.Temperature, log)
		if err != nil {
			return nil, err
		}
		provider = g
	default:
		return nil, fmt.Errorf("unknown reasoning provider: %s", rc.Provider)
	}

	policy := DefaultRetryPolicy()
	policy.MaxAttempts = rc.MaxAttempts
	if len(rc.Backoff) > 0 {
		policy.Backoff = rc.Backoff
	}

	svc := WithTimeout(provider, rc.Timeout)
	limited := WithRateLimit(svc, rc.RequestsPerSecond, 1)
	retrying := WithRetry(limited, policy, log)
	return WithMetrics(retrying, rec), nil
}
