package contracts

import "errors"

// Error taxonomy
// ⭐ SSOT: 파이프라인 에러 분류는 여기서만 정의
// UniverseEmpty 만 run 을 중단시키고, 나머지는 각 stage 에서 fallback 으로 복구한다.
var (
	// ErrUniverseEmpty is fatal: there is nothing to score.
	ErrUniverseEmpty = errors.New("universe empty")

	// ErrSourceFailure marks a single feature bundle fetch failure.
	ErrSourceFailure = errors.New("source failure")

	ErrScoringUnavailable   = errors.New("scoring unavailable")
	ErrStrategyUnavailable  = errors.New("strategy unavailable")
	ErrSelectionUnavailable = errors.New("selection unavailable")

	// ErrMalformedOutput is returned when a reasoning response cannot be decoded
	// even after extraction attempts. Callers treat it like the stage's
	// *Unavailable error.
	ErrMalformedOutput = errors.New("malformed reasoning output")

	// ErrReasoningDisabled is returned by the reasoning service when it is
	// administratively switched off. It is never retried.
	ErrReasoningDisabled = errors.New("reasoning disabled")

	// ErrReasoningUnavailable wraps transport, timeout and provider failures.
	ErrReasoningUnavailable = errors.New("reasoning unavailable")
)
