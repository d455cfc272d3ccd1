package contracts

import "time"

// Source records where a stage output came from, so a consumer can tell
// genuine analysis from fallback.
type Source string

const (
	SourceReasoning Source = "reasoning" // reasoning service 분석 결과
	SourceHeuristic Source = "heuristic" // 수치 피처 기반 휴리스틱
	SourceNeutral   Source = "neutral"   // 전 차원 5점 fallback
	SourcePrevious  Source = "previous"  // 직전 전략 재사용
	SourceDefault   Source = "default"   // 하드코딩 기본 전략
)

// IsFallback reports whether the output is degraded
func (s Source) IsFallback() bool {
	return s != SourceReasoning
}

// Candidate is an instrument with its snapshot summary and ScoreVector (S3 → S5)
// ⭐ SSOT: S3 → S5 평가 결과 전달. run-date 당 1회 생성, checkpoint 캐시에 저장.
type Candidate struct {
	Instrument     Instrument           `json:"instrument"`
	LastPrice      float64              `json:"last_price"`
	Return5D       float64              `json:"return_5d"`
	Scores         ScoreVector          `json:"scores"`
	Justifications map[Dimension]string `json:"justifications,omitempty"`
	Digests        map[string]string    `json:"digests,omitempty"` // news/technical/fundamental 요약
	Rationale      string               `json:"rationale"`
	Source         Source               `json:"source"`
	ScoredAt       time.Time            `json:"scored_at"`
}

// Code returns the instrument code
func (c *Candidate) Code() string {
	return c.Instrument.Code
}

// AggregateScore returns the plain ScoreVector sum
func (c *Candidate) AggregateScore() int {
	return c.Scores.Sum()
}
