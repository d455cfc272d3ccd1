package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/config"
)

var (
	hhmmPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
	codePattern = regexp.MustCompile(`^\d{6}$`)
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}
	if cfg.Meta.DecisionTimeLocal != "" {
		if err := validateHHMM(cfg.Meta.DecisionTimeLocal); err != nil {
			return ValidationError{"meta.decision_time_local", err.Error()}
		}
	}

	// === Universe ===
	switch cfg.Universe.Source {
	case "", config.UniverseKosdaqTop30, config.UniverseKospiTop30:
	default:
		return ValidationError{"universe.source", fmt.Sprintf("unknown source %q", cfg.Universe.Source)}
	}
	if cfg.Universe.Size < 0 || cfg.Universe.Size > 100 {
		return ValidationError{"universe.size", "must be in [0, 100]"}
	}
	seen := make(map[string]bool, len(cfg.Universe.Fallback))
	for i, inst := range cfg.Universe.Fallback {
		field := fmt.Sprintf("universe.fallback[%d]", i)
		if !codePattern.MatchString(inst.Code) {
			return ValidationError{field + ".code", "must be a 6-digit code"}
		}
		if seen[inst.Code] {
			return ValidationError{field + ".code", "duplicate code " + inst.Code}
		}
		seen[inst.Code] = true
		if inst.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
	}

	// === Strategy ===
	if len(cfg.Strategy.DefaultEmphasis) > 0 {
		total := 0.0
		for k, w := range cfg.Strategy.DefaultEmphasis {
			field := "strategy.default_emphasis." + k
			if _, ok := contracts.ParseDimension(k); !ok {
				return ValidationError{field, "unknown dimension"}
			}
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return ValidationError{field, "must be a non-negative number"}
			}
			total += w
		}
		if total <= 0 {
			return ValidationError{"strategy.default_emphasis", "weights must not all be zero"}
		}
	}

	// === Portfolio ===
	if cfg.Portfolio.MaxPositions < 0 || cfg.Portfolio.MaxPositions > 30 {
		return ValidationError{"portfolio.max_positions", "must be in [0, 30]"}
	}
	if cfg.Portfolio.OfferSize < 0 {
		return ValidationError{"portfolio.offer_size", "must be >= 0"}
	}
	if cfg.Portfolio.OfferSize > 0 && cfg.Portfolio.MaxPositions > cfg.Portfolio.OfferSize {
		return ValidationError{"portfolio.offer_size", "must be >= max_positions"}
	}

	// === Trajectory ===
	if cfg.Trajectory.Size < 0 || cfg.Trajectory.Size > 365 {
		return ValidationError{"trajectory.size", "must be in [0, 365]"}
	}

	return nil
}

// Warn returns recommendation violations
// 경고는 실행을 막지 않음
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// emphasis 합이 1이 아니면 정규화됨
	if len(cfg.Strategy.DefaultEmphasis) > 0 {
		weights := make([]float64, 0, len(cfg.Strategy.DefaultEmphasis))
		for _, w := range cfg.Strategy.DefaultEmphasis {
			weights = append(weights, w)
		}
		if err := validateWeightsSum(weights, 1.0, 1e-6); err != nil {
			warnings = append(warnings, Warning{
				Code:    "EMPHASIS_NORMALIZED",
				Message: "default_emphasis " + err.Error() + ": 정규화하여 사용",
			})
		}
	}

	// 과도한 집중 / 분산
	if cfg.Portfolio.MaxPositions > 10 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_PORTFOLIO",
			Message: "max_positions > 10: 선택 프롬프트가 길어지고 비중이 희석됨",
		})
	}

	// 짧은 trajectory는 피드백 신호가 약함
	if cfg.Trajectory.Size > 0 && cfg.Trajectory.Size < 5 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_TRAJECTORY",
			Message: "trajectory.size < 5: 전략 프롬프트에 실린 이력이 부족함",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateHHMM(s string) error {
	if !hhmmPattern.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}
