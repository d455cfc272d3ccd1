package reasoning

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/wonny/threes/backend/internal/contracts"
)

// RateLimited paces calls to the provider
type RateLimited struct {
	next    contracts.ReasoningService
	limiter *rate.Limiter
}

// WithRateLimit wraps svc with a token bucket (rps <= 0 disables pacing)
func WithRateLimit(svc contracts.ReasoningService, rps float64, burst int) contracts.ReasoningService {
	if rps <= 0 {
		return svc
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: svc, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", contracts.ErrReasoningUnavailable, err)
	}
	return r.next.Ask(ctx, prompt, tier)
}

func (r *RateLimited) Unwrap() contracts.ReasoningService { return r.next }
