package brain

import (
	"path/filepath"
	"time"

	"github.com/wonny/threes/backend/internal/collector"
	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/trajectory"
	"github.com/wonny/threes/backend/pkg/fsutil"
)

// RunResult is one run's outcome. Allocation, Candidates and Strategy are
// the artifacts handed to report consumers.
type RunResult struct {
	RunID           string                   `json:"run_id"`
	Date            string                   `json:"date"`
	StartedAt       time.Time                `json:"started_at"`
	Duration        time.Duration            `json:"duration_ns"`
	DryRun          bool                     `json:"dry_run"`
	Success         bool                     `json:"success"`
	Error           string                   `json:"error,omitempty"`
	CompletedStages []string                 `json:"completed_stages"`
	StageDurations  map[string]int64         `json:"stage_durations_ms"`
	Universe        *contracts.Universe      `json:"universe,omitempty"`
	Candidates      []contracts.Candidate    `json:"candidates"` // Rank 순서
	Strategy        contracts.Strategy       `json:"strategy"`
	Allocation      contracts.Allocation     `json:"allocation"`
	CacheHits       int                      `json:"cache_hits"`
	Dropped         []string                 `json:"dropped,omitempty"`
	MissingBundles  map[string][]string      `json:"missing_bundles,omitempty"`
	Quality         *collector.QualityReport `json:"quality,omitempty"` // 신규 수집분만
	Fallbacks       map[string]int           `json:"fallbacks"` // stage → fallback 건수
	Backfill        trajectory.BackfillStats `json:"backfill"`
	TrajectorySize  int                      `json:"trajectory_size"`
}

func newRunResult(config RunConfig, date string, start time.Time) *RunResult {
	return &RunResult{
		RunID:           config.RunID,
		Date:            date,
		StartedAt:       start,
		DryRun:          config.DryRun,
		CompletedStages: make([]string, 0, 6),
		StageDurations:  make(map[string]int64),
		MissingBundles:  make(map[string][]string),
		Fallbacks:       make(map[string]int),
	}
}

// countFallbacks tallies degraded outputs per stage
func (r *RunResult) countFallbacks() {
	for _, c := range r.Candidates {
		if c.Source.IsFallback() {
			r.Fallbacks[contracts.StageScore.String()]++
		}
	}
	if r.Strategy.Source.IsFallback() {
		r.Fallbacks[contracts.StageStrategy.String()]++
	}
	if r.Allocation.Source.IsFallback() {
		r.Fallbacks[contracts.StageSelect.String()]++
	}
}

// Degraded reports whether any stage fell back
func (r *RunResult) Degraded() bool {
	for _, n := range r.Fallbacks {
		if n > 0 {
			return true
		}
	}
	return false
}

// LatestRunPath returns <stateDir>/latest_run.json
func LatestRunPath(stateDir string) string {
	return filepath.Join(stateDir, "latest_run.json")
}

// SaveLatestRun atomically replaces latest_run.json
func SaveLatestRun(stateDir string, r *RunResult) error {
	return fsutil.WriteJSONAtomic(LatestRunPath(stateDir), r)
}

// LoadLatestRun reads latest_run.json; found is false when no run exists yet
func LoadLatestRun(stateDir string) (*RunResult, bool, error) {
	var r RunResult
	found, err := fsutil.ReadJSON(LatestRunPath(stateDir), &r)
	if err != nil || !found {
		return nil, found, err
	}
	return &r, true, nil
}
