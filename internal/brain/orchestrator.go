// Package brain runs one full pipeline pass:
// universe → collect → score → strategy → select → trajectory.
package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/threes/backend/internal/collector"
	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/selection"
	"github.com/wonny/threes/backend/internal/trajectory"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// SnapshotCollector gathers snapshots with a bounded worker pool (S2)
type SnapshotCollector interface {
	CollectAll(ctx context.Context, insts []contracts.Instrument, workers int) ([]*contracts.Snapshot, []collector.FetchResult)
}

// Scorer scores snapshots with the per-date checkpoint cache (S3)
type Scorer interface {
	Cached(ctx context.Context, date time.Time) map[string]contracts.Candidate
	ScoreAll(ctx context.Context, date time.Time, snaps []*contracts.Snapshot) []contracts.Candidate
}

// StrategyProposer proposes the run's strategy (S4)
type StrategyProposer interface {
	Propose(ctx context.Context, date string, log *contracts.TrajectoryLog, overview string) contracts.Strategy
}

// Selector picks the allocation (S5)
type Selector interface {
	Select(ctx context.Context, strategy contracts.Strategy, ranked []contracts.Candidate) contracts.Allocation
	MaxPositions() int
}

// DisclosurePreloader warms per-instrument disclosure lookups before S2
type DisclosurePreloader interface {
	PreloadDisclosures(ctx context.Context, insts []contracts.Instrument, asOf time.Time)
}

// SelectionArchive stores the ranking and allocation of a run
type SelectionArchive interface {
	Save(ctx context.Context, date time.Time, runID string, ranked []contracts.Candidate, alloc contracts.Allocation) error
}

// Deps are the stage components. Overview, Preloader and Archive may be nil.
type Deps struct {
	Universe   contracts.UniverseResolver
	Collector  SnapshotCollector
	Scorer     Scorer
	Overview   contracts.MarketOverviewSource
	Strategy   StrategyProposer
	Screener   *selection.Screener
	Selector   Selector
	Tracker    *trajectory.Tracker
	Store      trajectory.Store
	Preloader  DisclosurePreloader
	Archive    SelectionArchive
	Metrics    *metrics.Recorder
	StateDir   string
	Workers    int
	ConfigHash string
}

// Orchestrator coordinates the pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	deps   Deps
	logger *logger.Logger
	now    func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Deps, log *logger.Logger) *Orchestrator {
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	if deps.Screener == nil {
		deps.Screener = selection.NewScreener(log)
	}
	return &Orchestrator{deps: deps, logger: log.WithModule("brain"), now: time.Now}
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Date   time.Time // run-date (cache / trajectory key)
	RunID  string    // 비어 있으면 uuid 생성
	DryRun bool      // trajectory, raw, latest_run 저장 안 함
}

// Run executes one pipeline pass. Only an empty universe, a cancelled
// context or a failed trajectory write return an error; every other failure
// degrades the stage output.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := o.now()
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	if config.Date.IsZero() {
		config.Date = startTime
	}
	date := contracts.FormatDate(config.Date)

	result := newRunResult(config, date, startTime)
	log := o.logger.WithFields(map[string]interface{}{"run_id": config.RunID, "date": date})
	log.WithField("dry_run", config.DryRun).Info("Starting pipeline run")

	// S1: Universe
	universe, err := o.runS1(ctx, result)
	if err != nil {
		return o.fail(result, startTime, fmt.Errorf("S1 failed: %w", err))
	}

	// S2+S3 와 S4 준비(trajectory, 시장 개요)는 병렬
	var (
		candidates []contracts.Candidate
		history    *contracts.TrajectoryLog
		overview   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		candidates = o.runS2S3(gctx, config, universe, result)
		return gctx.Err()
	})
	g.Go(func() error {
		history, overview = o.prepareS4(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return o.fail(result, startTime, err)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(result, startTime, err)
	}

	// S4: Strategy (모든 종목 작업 완료 후)
	stageStart := o.now()
	strategy := o.deps.Strategy.Propose(ctx, date, history, overview)
	result.Strategy = strategy
	o.stageDone(result, contracts.StageStrategy, stageStart)

	// S5: Select
	stageStart = o.now()
	ranked := selection.Rank(o.deps.Screener.Screen(candidates))
	alloc := o.deps.Selector.Select(ctx, strategy, ranked)
	if err := alloc.Validate(o.deps.Selector.MaxPositions()); err != nil {
		log.WithError(err).Error("Allocation violates contract")
	}
	result.Candidates = ranked
	result.Allocation = alloc
	o.stageDone(result, contracts.StageSelect, stageStart)

	// S6: Trajectory
	if err := o.runS6(ctx, config, date, history, result); err != nil {
		return o.fail(result, startTime, fmt.Errorf("S6 failed: %w", err))
	}

	result.countFallbacks()
	result.Success = true
	result.Duration = o.now().Sub(startTime)
	if !config.DryRun {
		if err := SaveLatestRun(o.deps.StateDir, result); err != nil {
			log.WithError(err).Warn("Failed to write latest run")
		}
	}

	log.WithFields(map[string]interface{}{
		"duration":   result.Duration.Seconds(),
		"positions":  alloc.Count(),
		"cash":       alloc.CashWeight,
		"candidates": len(ranked),
		"strategy":   string(strategy.Source),
		"selection":  string(alloc.Source),
	}).Info("Pipeline run completed")
	return result, nil
}

func (o *Orchestrator) fail(result *RunResult, startTime time.Time, err error) (*RunResult, error) {
	result.Error = err.Error()
	result.Duration = o.now().Sub(startTime)
	o.logger.WithError(err).WithField("run_id", result.RunID).Error("Pipeline run failed")
	return result, err
}

func (o *Orchestrator) stageDone(result *RunResult, stage contracts.Stage, start time.Time) {
	d := o.now().Sub(start)
	result.CompletedStages = append(result.CompletedStages, stage.String())
	result.StageDurations[stage.String()] = d.Milliseconds()
	o.deps.Metrics.RecordStage(stage.ShortName(), d)
}

// runS1 resolves the universe; empty is fatal
func (o *Orchestrator) runS1(ctx context.Context, result *RunResult) (*contracts.Universe, error) {
	start := o.now()
	universe, err := o.deps.Universe.Resolve(ctx)
	if err == nil && universe.Count() == 0 {
		err = contracts.ErrUniverseEmpty
	}
	if err != nil {
		return nil, err
	}
	result.Universe = universe
	o.stageDone(result, contracts.StageUniverse, start)

	o.logger.WithFields(map[string]interface{}{
		"instruments": universe.Count(),
		"excluded":    len(universe.Excluded),
		"source":      universe.Source,
	}).Info("S1 completed")
	return universe, nil
}

// runS2S3 collects instruments not already cached today, then scores.
// Output follows universe order; dropped instruments are absent.
func (o *Orchestrator) runS2S3(ctx context.Context, config RunConfig, universe *contracts.Universe, result *RunResult) []contracts.Candidate {
	start := o.now()
	cached := o.deps.Scorer.Cached(ctx, config.Date)

	pending := make([]contracts.Instrument, 0, universe.Count())
	for _, inst := range universe.Instruments {
		if _, ok := cached[inst.Code]; !ok {
			pending = append(pending, inst)
		}
	}
	result.CacheHits = universe.Count() - len(pending)

	var snaps []*contracts.Snapshot
	if len(pending) > 0 {
		if o.deps.Preloader != nil {
			o.deps.Preloader.PreloadDisclosures(ctx, pending, config.Date)
		}
		var fetched []collector.FetchResult
		snaps, fetched = o.deps.Collector.CollectAll(ctx, pending, o.deps.Workers)
		for _, r := range fetched {
			if r.Snapshot == nil {
				result.Dropped = append(result.Dropped, r.Instrument.Code)
			} else if len(r.Missing) > 0 {
				result.MissingBundles[r.Instrument.Code] = r.Missing
			}
		}
		result.Quality = collector.AssessQuality(fetched, collector.DefaultQualityConfig())
		if !result.Quality.Passed() {
			o.logger.WithFields(map[string]interface{}{
				"score":      result.Quality.Score,
				"shortfalls": result.Quality.Shortfalls,
			}).Warn("Collection coverage below threshold")
		}
		if !config.DryRun && len(snaps) > 0 {
			if err := collector.SaveRaw(o.deps.StateDir, config.Date, snaps); err != nil {
				o.logger.WithError(err).Warn("Failed to save raw snapshots")
			}
		}
	}
	o.stageDone(result, contracts.StageCollect, start)

	start = o.now()
	scored := o.deps.Scorer.ScoreAll(ctx, config.Date, snaps)
	byCode := make(map[string]contracts.Candidate, len(scored)+len(cached))
	for code, c := range cached {
		byCode[code] = c
	}
	for _, c := range scored {
		byCode[c.Code()] = c
	}

	candidates := make([]contracts.Candidate, 0, universe.Count())
	for _, inst := range universe.Instruments {
		if c, ok := byCode[inst.Code]; ok {
			candidates = append(candidates, c)
		}
	}
	o.stageDone(result, contracts.StageScore, start)

	o.logger.WithFields(map[string]interface{}{
		"collected":  len(snaps),
		"cache_hits": result.CacheHits,
		"dropped":    len(result.Dropped),
		"scored":     len(candidates),
	}).Info("S2/S3 completed")
	return candidates
}

// prepareS4 loads the trajectory and builds the market overview
func (o *Orchestrator) prepareS4(ctx context.Context) (*contracts.TrajectoryLog, string) {
	history, err := o.deps.Store.Load(ctx)
	if err != nil {
		o.logger.WithError(err).Warn("Trajectory unavailable, starting empty")
		history = &contracts.TrajectoryLog{}
	}

	overview := ""
	if o.deps.Overview != nil {
		overview, err = o.deps.Overview.Build(ctx)
		if err != nil {
			o.logger.WithError(err).Warn("Market overview unavailable")
		}
	}
	return history, overview
}

// runS6 records the decision, backfills other dates and persists
func (o *Orchestrator) runS6(ctx context.Context, config RunConfig, date string, history *contracts.TrajectoryLog, result *RunResult) error {
	start := o.now()

	entry := contracts.NewTrajectoryEntry(date, result.Strategy, result.Allocation)
	entry.RunID = config.RunID
	entry.ConfigHash = o.deps.ConfigHash
	o.deps.Tracker.Record(history, entry)

	stats, err := o.deps.Tracker.Backfill(ctx, history, date)
	if err != nil {
		o.logger.WithError(err).Warn("Backfill failed, entries left as is")
	}
	result.Backfill = stats
	result.TrajectorySize = history.Len()

	if config.DryRun {
		o.logger.Info("Dry run, trajectory not persisted")
		o.stageDone(result, contracts.StageTrajectory, start)
		return nil
	}

	if err := o.deps.Store.Save(ctx, history); err != nil {
		return err
	}
	if o.deps.Archive != nil {
		if err := o.deps.Archive.Save(ctx, config.Date, config.RunID, result.Candidates, result.Allocation); err != nil {
			o.logger.WithError(err).Warn("Selection archive write failed")
		}
	}
	o.stageDone(result, contracts.StageTrajectory, start)
	return nil
}

// IsFatal reports whether err aborted the run before any allocation
func IsFatal(err error) bool {
	return errors.Is(err, contracts.ErrUniverseEmpty)
}
