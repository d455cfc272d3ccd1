package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

// RetryPolicy controls attempts and backoff between them.
// Sleep is injectable so tests never wait on real timers.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is 3 attempts with 2s, 5s, 10s waits
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second},
		Sleep:       sleepCtx,
	}
}

// delay returns the wait before attempt number `attempt` (1-based retry)
func (p RetryPolicy) delay(retry int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if retry > len(p.Backoff) {
		retry = len(p.Backoff)
	}
	return p.Backoff[retry-1]
}

// Retrying retries transient reasoning failures per its policy
type Retrying struct {
	next   contracts.ReasoningService
	policy RetryPolicy
	logger *logger.Logger
}

// WithRetry wraps svc with a retry policy
func WithRetry(svc contracts.ReasoningService, policy RetryPolicy, log *logger.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Sleep == nil {
		policy.Sleep = sleepCtx
	}
	return &Retrying{next: svc, policy: policy, logger: log.WithModule("reasoning")}
}

func (r *Retrying) Ask(ctx context.Context, prompt string, tier contracts.ModelTier) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.policy.Sleep(ctx, r.policy.delay(attempt-1)); err != nil {
				return "", fmt.Errorf("%w: %v", contracts.ErrReasoningUnavailable, err)
			}
		}

		out, err := r.next.Ask(ctx, prompt, tier)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// 비활성화/호출자 취소는 재시도하지 않음
		if isDisabledErr(err) || ctx.Err() != nil {
			return "", err
		}
		if isPermanentErr(err) {
			r.logger.WithError(err).WithField("tier", string(tier)).Warn("Reasoning call rejected, not retrying")
			break
		}

		r.logger.WithError(err).WithFields(map[string]interface{}{
			"attempt": attempt,
			"max":     r.policy.MaxAttempts,
			"tier":    string(tier),
		}).Warn("Reasoning call failed")
	}

	if errors.Is(lastErr, contracts.ErrReasoningUnavailable) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %v", contracts.ErrReasoningUnavailable, lastErr)
}

func (r *Retrying) Unwrap() contracts.ReasoningService { return r.next }

func isDisabledErr(err error) bool {
	return errors.Is(err, contracts.ErrReasoningDisabled)
}

// isPermanentErr reports provider rejections (4xx other than 429) that
// another attempt cannot fix
func isPermanentErr(err error) bool {
	var se *httputil.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && !httputil.IsRetryableError(se.StatusCode)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
