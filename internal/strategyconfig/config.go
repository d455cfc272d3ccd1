package strategyconfig

import "time"

// Config는 파이프라인 운용 프로필 (선택)
// 환경변수 설정 위에 덮어쓰는 값만 담는다. 0 값은 "덮어쓰지 않음".
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Strategy   Strategy   `yaml:"strategy" json:"strategy"`
	Portfolio  Portfolio  `yaml:"portfolio" json:"portfolio"`
	Trajectory Trajectory `yaml:"trajectory" json:"trajectory"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID         string `yaml:"profile_id" json:"profile_id"`
	Version           string `yaml:"version" json:"version"`
	Description       string `yaml:"description" json:"description"`
	DecisionTimeLocal string `yaml:"decision_time_local" json:"decision_time_local"` // HH:MM (Asia/Seoul), 비어있으면 기본 스케줄
}

// Universe S1: 후보 풀
type Universe struct {
	Source   string       `yaml:"source" json:"source"` // KOSDAQ_TOP_30, KOSPI_TOP_30
	Size     int          `yaml:"size" json:"size"`
	Fallback []Instrument `yaml:"fallback" json:"fallback"`
}

// Instrument is a fallback universe entry
type Instrument struct {
	Code   string `yaml:"code" json:"code"`
	Name   string `yaml:"name" json:"name"`
	Market string `yaml:"market" json:"market"`
}

// Strategy S4: 기본 전략
type Strategy struct {
	DefaultText     string             `yaml:"default_text" json:"default_text"`
	DefaultEmphasis map[string]float64 `yaml:"default_emphasis" json:"default_emphasis"` // 차원 → 가중치, 정규화 전
}

// Portfolio S5: 선택 제약
type Portfolio struct {
	MaxPositions int `yaml:"max_positions" json:"max_positions"`
	OfferSize    int `yaml:"offer_size" json:"offer_size"` // 선택 프롬프트에 제시할 상위 후보 수
}

// Trajectory S6: 피드백 로그
type Trajectory struct {
	Size int `yaml:"size" json:"size"` // K
}

// ProfileSnapshot 프로필 스냅샷 (재현성용)
type ProfileSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	ProfileID  string    `json:"profile_id"`
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
}
