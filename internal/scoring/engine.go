// Package scoring turns feature snapshots into six-dimension ScoreVectors:
// three summarizers and one evaluator backed by the reasoning service, a
// pure synonym normalization pass, and neutral/heuristic fallbacks.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/reasoning"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// CandidateCache is the per-run-date write-through cache
type CandidateCache interface {
	Get(ctx context.Context, date time.Time) map[string]contracts.Candidate
	Add(ctx context.Context, date time.Time, cand contracts.Candidate) error
}

// Config holds scoring knobs
type Config struct {
	Workers int
}

// Engine scores snapshots
// ⭐ SSOT: S3 점수화는 이 엔진에서만
type Engine struct {
	svc     contracts.ReasoningService
	cache   CandidateCache
	workers int
	logger  *logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewEngine creates a scoring engine. cache may be nil.
func NewEngine(svc contracts.ReasoningService, cache CandidateCache, cfg Config, rec *metrics.Recorder, log *logger.Logger) *Engine {
	if svc == nil {
		svc = reasoning.Disabled{}
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		svc:     svc,
		cache:   cache,
		workers: workers,
		logger:  log.WithModule("scoring"),
		metrics: rec,
		now:     time.Now,
	}
}

// Score evaluates one snapshot. It never fails: reasoning errors fall back
// to neutral scores, disabled reasoning to heuristic scores.
func (e *Engine) Score(ctx context.Context, snap *contracts.Snapshot) contracts.Candidate {
	cand := contracts.Candidate{
		Instrument: snap.Instrument,
		LastPrice:  snap.LastPrice(),
		ScoredAt:   e.now(),
	}
	if snap.Technical != nil {
		cand.Return5D = snap.Technical.Return5D
	}

	if reasoning.IsDisabled(e.svc) {
		return e.heuristic(cand, snap, "reasoning disabled")
	}

	digests, degraded := summarize(ctx, e.svc, snap)
	cand.Digests = digests

	raw, err := e.svc.Ask(ctx, evaluatorPrompt(snap.Instrument, digests), contracts.TierCheap)
	if errors.Is(err, contracts.ErrReasoningDisabled) {
		return e.heuristic(cand, snap, "reasoning disabled")
	}
	if err != nil {
		return e.neutral(cand, fmt.Errorf("%w: %v", contracts.ErrScoringUnavailable, err))
	}

	ev, err := DecodeEvaluation(raw)
	if err != nil {
		return e.neutral(cand, err)
	}

	cand.Scores = ev.Scores
	cand.Justifications = ev.Justifications
	cand.Source = contracts.SourceReasoning
	cand.Rationale = ev.Summary
	if ev.Variant == VariantNormalized {
		cand.Rationale = appendNote(cand.Rationale, "evaluator keys normalized via synonym table")
	}
	if degraded > 0 {
		cand.Rationale = appendNote(cand.Rationale, fmt.Sprintf("%d digest(s) built from raw data after summarizer failure", degraded))
	}
	return cand
}

func (e *Engine) neutral(cand contracts.Candidate, cause error) contracts.Candidate {
	cand.Scores = contracts.NeutralScoreVector()
	cand.Justifications = nil
	cand.Source = contracts.SourceNeutral
	cand.Rationale = "fallback: neutral scores (" + cause.Error() + ")"
	e.metrics.RecordFallback(contracts.StageScore.ShortName(), string(contracts.SourceNeutral))
	e.logger.WithError(cause).WithField("code", cand.Code()).Warn("Scoring fell back to neutral")
	return cand
}

func (e *Engine) heuristic(cand contracts.Candidate, snap *contracts.Snapshot, reason string) contracts.Candidate {
	cand.Scores, cand.Justifications = HeuristicScores(snap)
	cand.Source = contracts.SourceHeuristic
	cand.Rationale = fmt.Sprintf("fallback: heuristic scores, %s (composite %.2f)", reason, CompositeScore(snap))
	e.metrics.RecordFallback(contracts.StageScore.ShortName(), string(contracts.SourceHeuristic))
	return cand
}

// Cached returns today's cached candidates (empty without a cache)
func (e *Engine) Cached(ctx context.Context, date time.Time) map[string]contracts.Candidate {
	if e.cache == nil {
		return map[string]contracts.Candidate{}
	}
	return e.cache.Get(ctx, date)
}

// ScoreAll scores snapshots with a bounded worker pool. Instruments already
// in today's cache are reused; every fresh non-neutral candidate is written
// through to the cache as soon as it is finished. Output keeps the input
// order.
func (e *Engine) ScoreAll(ctx context.Context, date time.Time, snaps []*contracts.Snapshot) []contracts.Candidate {
	cached := e.Cached(ctx, date)

	out := make([]contracts.Candidate, len(snaps))

	type job struct {
		idx  int
		snap *contracts.Snapshot
	}
	jobs := make([]job, 0, len(snaps))
	for i, s := range snaps {
		if c, ok := cached[s.Instrument.Code]; ok {
			out[i] = c
			continue
		}
		jobs = append(jobs, job{idx: i, snap: s})
	}

	type result struct {
		idx  int
		cand contracts.Candidate
	}
	jobCh := make(chan job, len(jobs))
	resultCh := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				resultCh <- result{idx: j.idx, cand: e.Score(ctx, j.snap)}
			}
		}()
	}
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 단일 수집 루프: 완료 즉시 캐시에 기록 (neutral 은 재시작 시 다시 평가)
	fallbacks := 0
	for r := range resultCh {
		out[r.idx] = r.cand
		if r.cand.Source.IsFallback() {
			fallbacks++
		}
		if e.cache != nil && r.cand.Source != contracts.SourceNeutral {
			if err := e.cache.Add(ctx, date, r.cand); err != nil {
				e.logger.WithError(err).WithField("code", r.cand.Code()).Warn("Checkpoint write failed")
			}
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"total":     len(snaps),
		"cached":    len(snaps) - len(jobs),
		"scored":    len(jobs),
		"fallbacks": fallbacks,
	}).Info("Scoring completed")

	return out
}

func appendNote(s, note string) string {
	if s == "" {
		return note
	}
	return s + " [" + note + "]"
}
