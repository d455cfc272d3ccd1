package collector

import (
	"sort"
)

// QualityConfig holds per-bundle coverage thresholds
type QualityConfig struct {
	MinTechnical   float64 `yaml:"min_technical"`   // 1.0 (드롭 제외 후 항상 충족)
	MinFundamental float64 `yaml:"min_fundamental"` // 0.80
	MinFlow        float64 `yaml:"min_flow"`        // 0.80
	MinNews        float64 `yaml:"min_news"`        // 0.50
}

// DefaultQualityConfig returns the thresholds used by the daily run
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinTechnical:   1.0,
		MinFundamental: 0.80,
		MinFlow:        0.80,
		MinNews:        0.50,
	}
}

// QualityReport summarizes bundle coverage of one collection pass
type QualityReport struct {
	Requested  int                `json:"requested"`
	Collected  int                `json:"collected"`
	Coverage   map[string]float64 `json:"coverage"` // 번들 → 수집 성공 비율 (요청 대비)
	Score      float64            `json:"score"`
	Shortfalls []string           `json:"shortfalls,omitempty"` // 임계값 미달 번들
}

// bundleWeights 합계 = 1.0
var bundleWeights = map[string]float64{
	BundleTechnical:   0.40,
	BundleFundamental: 0.25,
	BundleFlow:        0.20,
	BundleNews:        0.15,
}

// AssessQuality computes coverage over fetch results.
// Dropped instruments count as missing every bundle.
// ⭐ SSOT: S2 수집 품질 판정
func AssessQuality(results []FetchResult, cfg QualityConfig) *QualityReport {
	report := &QualityReport{
		Requested: len(results),
		Coverage:  make(map[string]float64, len(bundleWeights)),
	}
	if len(results) == 0 {
		return report
	}

	present := make(map[string]int, len(bundleWeights))
	for _, r := range results {
		if r.Snapshot == nil {
			continue
		}
		report.Collected++
		for bundle, ok := range r.Snapshot.Coverage() {
			if ok {
				present[bundle]++
			}
		}
	}

	total := float64(len(results))
	for bundle, weight := range bundleWeights {
		cov := float64(present[bundle]) / total
		report.Coverage[bundle] = cov
		report.Score += cov * weight
	}

	thresholds := map[string]float64{
		BundleTechnical:   cfg.MinTechnical,
		BundleFundamental: cfg.MinFundamental,
		BundleFlow:        cfg.MinFlow,
		BundleNews:        cfg.MinNews,
	}
	for bundle, min := range thresholds {
		if report.Coverage[bundle] < min {
			report.Shortfalls = append(report.Shortfalls, bundle)
		}
	}
	sort.Strings(report.Shortfalls)
	return report
}

// Passed reports whether every bundle met its threshold
func (r *QualityReport) Passed() bool {
	return len(r.Shortfalls) == 0
}
