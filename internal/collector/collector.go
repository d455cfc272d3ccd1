package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// Bundle names used in logs and metrics
const (
	BundleTechnical   = "technical"
	BundleFundamental = "fundamental"
	BundleFlow        = "flow"
	BundleNews        = "news"
)

// Collector gathers feature snapshots from a DataSource
// ⭐ SSOT: S2 피처 수집은 이 패키지에서만
type Collector struct {
	source  contracts.DataSource
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// Config holds collector configuration
type Config struct {
	Workers       int           // 동시 수집 워커 수
	SourceTimeout time.Duration // 번들별 타임아웃
}

// NewCollector creates a new Collector instance
func NewCollector(source contracts.DataSource, cfg Config, rec *metrics.Recorder, log *logger.Logger) *Collector {
	timeout := cfg.SourceTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Collector{
		source:  source,
		timeout: timeout,
		logger:  log.WithModule("collector"),
		metrics: rec,
		now:     time.Now,
	}
}

// FetchResult is the per-instrument outcome of a collection run
type FetchResult struct {
	Instrument contracts.Instrument
	Snapshot   *contracts.Snapshot
	Missing    []string // 실패한 번들
	Error      error
}

// Collect fetches the four bundles of one instrument concurrently, each under
// its own timeout. Non-technical failures leave the bundle nil; a missing
// technical bundle drops the instrument with ErrSourceFailure.
func (c *Collector) Collect(ctx context.Context, inst contracts.Instrument) (*contracts.Snapshot, []string, error) {
	snap := &contracts.Snapshot{Instrument: inst, CollectedAt: c.now()}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		missing []string
		techErr error
	)

	fail := func(bundle string, err error) {
		mu.Lock()
		missing = append(missing, bundle)
		if bundle == BundleTechnical {
			techErr = err
		}
		mu.Unlock()
		c.metrics.RecordSourceFailure(bundle)
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"code":   inst.Code,
			"bundle": bundle,
		}).Warn("Bundle fetch failed")
	}

	run := func(bundle string, fetch func(ctx context.Context) error) {
		defer wg.Done()
		bctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := fetch(bctx); err != nil {
			fail(bundle, err)
		}
	}

	wg.Add(4)
	go run(BundleTechnical, func(ctx context.Context) error {
		tb, err := c.source.FetchTechnical(ctx, inst)
		if err == nil && (tb == nil || tb.Price <= 0) {
			err = fmt.Errorf("no usable price")
		}
		if err != nil {
			return err
		}
		snap.Technical = tb
		return nil
	})
	go run(BundleFundamental, func(ctx context.Context) error {
		fb, err := c.source.FetchFundamental(ctx, inst)
		if err != nil {
			return err
		}
		snap.Fundamental = fb
		return nil
	})
	go run(BundleFlow, func(ctx context.Context) error {
		flow, err := c.source.FetchFlow(ctx, inst)
		if err != nil {
			return err
		}
		snap.Flow = flow
		return nil
	})
	go run(BundleNews, func(ctx context.Context) error {
		news, err := c.source.FetchNews(ctx, inst)
		if err != nil {
			return err
		}
		snap.News = news
		return nil
	})
	wg.Wait()

	if techErr != nil || !snap.IsValid() {
		return nil, missing, fmt.Errorf("%w: %s technical: %v", contracts.ErrSourceFailure, inst.Code, techErr)
	}
	return snap, missing, nil
}

// CollectAll collects every instrument with a bounded worker pool.
// Snapshots keep the input order; dropped instruments are reported in the
// results only.
func (c *Collector) CollectAll(ctx context.Context, insts []contracts.Instrument, workers int) ([]*contracts.Snapshot, []FetchResult) {
	if workers < 1 {
		workers = 1
	}

	type job struct {
		idx  int
		inst contracts.Instrument
	}
	type indexed struct {
		idx int
		res FetchResult
	}

	jobCh := make(chan job, len(insts))
	resultCh := make(chan indexed, len(insts))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if err := ctx.Err(); err != nil {
					resultCh <- indexed{j.idx, FetchResult{Instrument: j.inst, Error: err}}
					continue
				}
				snap, missing, err := c.Collect(ctx, j.inst)
				resultCh <- indexed{j.idx, FetchResult{
					Instrument: j.inst,
					Snapshot:   snap,
					Missing:    missing,
					Error:      err,
				}}
			}
		}()
	}

	for i, inst := range insts {
		jobCh <- job{idx: i, inst: inst}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 단일 수집 루프
	results := make([]FetchResult, len(insts))
	for r := range resultCh {
		results[r.idx] = r.res
	}

	snapshots := make([]*contracts.Snapshot, 0, len(insts))
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			continue
		}
		snapshots = append(snapshots, r.Snapshot)
	}

	c.logger.WithFields(map[string]interface{}{
		"total":   len(insts),
		"success": len(snapshots),
		"dropped": failed,
		"workers": workers,
	}).Info("Feature collection completed")

	return snapshots, results
}
