package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, RunResult에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S1 → S2 → S3 → S4 → S5 → S6
//   (S4 의 trajectory 로드/시장 개요는 S2/S3 와 병렬, 전략 제안 호출은 S3 이후)
//   Universe  Collect  Score  Strategy  Select  Trajectory

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: 후보 종목 목록 생성
	// 위치: internal/universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageCollect S2: 종목별 Snapshot 수집 (technical/fundamental/flow/news)
	// 위치: internal/collector/
	StageCollect Stage = "S2_COLLECT"

	// StageScore S3: Snapshot → ScoreVector (checkpoint 캐시 사용)
	// 위치: internal/scoring/, internal/checkpoint/
	StageScore Stage = "S3_SCORE"

	// StageStrategy S4: 과거 trajectory 기반 전략 제안
	// 위치: internal/strategy/
	StageStrategy Stage = "S4_STRATEGY"

	// StageSelect S5: 포트폴리오 선택 (≤ N 종목 + 현금)
	// 위치: internal/selection/
	StageSelect Stage = "S5_SELECT"

	// StageTrajectory S6: 결정 기록 + 과거 수익률 backfill
	// 위치: internal/trajectory/
	StageTrajectory Stage = "S6_TRAJECTORY"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S1", "S2")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S1"
	case StageCollect:
		return "S2"
	case StageScore:
		return "S3"
	case StageStrategy:
		return "S4"
	case StageSelect:
		return "S5"
	case StageTrajectory:
		return "S6"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageUniverse:
		return "후보 종목"
	case StageCollect:
		return "피처 수집"
	case StageScore:
		return "6차원 평가"
	case StageStrategy:
		return "전략 제안"
	case StageSelect:
		return "포트폴리오 선택"
	case StageTrajectory:
		return "성과 추적"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in causal order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageCollect,
		StageScore,
		StageStrategy,
		StageSelect,
		StageTrajectory,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult records how a single stage went within a run
type StageResult struct {
	Stage       Stage  `json:"stage"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	Fallbacks   int    `json:"fallbacks"`
	Duration    int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}
