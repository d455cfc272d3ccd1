package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// Cache is the per-run-date Candidate cache.
// A stored record for another date is ignored wholesale.
// ⭐ SSOT: checkpoint 읽기/쓰기는 이 타입을 통해서만
type Cache struct {
	store   Store
	logger  *logger.Logger
	metrics *metrics.Recorder

	mu sync.Mutex
}

// New creates a cache over store
func New(store Store, rec *metrics.Recorder, log *logger.Logger) *Cache {
	return &Cache{
		store:   store,
		logger:  log.WithModule("checkpoint"),
		metrics: rec,
	}
}

// Get returns cached candidates for date; empty when stale, absent or
// unreadable
func (c *Cache) Get(ctx context.Context, date time.Time) map[string]contracts.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.loadLocked(ctx, date)
	if len(out) > 0 {
		c.metrics.RecordCacheHits(len(out))
	}
	return out
}

// Put replaces the cached set for date
func (c *Cache) Put(ctx context.Context, date time.Time, candidates map[string]contracts.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.saveLocked(ctx, date, candidates)
}

// Add writes one finished candidate through (read-modify-write under lock)
func (c *Cache) Add(ctx context.Context, date time.Time, cand contracts.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.loadLocked(ctx, date)
	current[cand.Code()] = cand
	return c.saveLocked(ctx, date, current)
}

// Clear drops the cache
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Clear(ctx)
}

func (c *Cache) loadLocked(ctx context.Context, date time.Time) map[string]contracts.Candidate {
	out := make(map[string]contracts.Candidate)

	rec, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Checkpoint unreadable, starting fresh")
		return out
	}
	if rec == nil {
		return out
	}

	want := contracts.FormatDate(date)
	if rec.Date != want {
		c.logger.WithFields(map[string]interface{}{
			"stored": rec.Date,
			"run":    want,
		}).Debug("Checkpoint stale, ignoring")
		return out
	}

	for code, cand := range rec.Candidates {
		out[code] = cand
	}
	return out
}

func (c *Cache) saveLocked(ctx context.Context, date time.Time, candidates map[string]contracts.Candidate) error {
	rec := &Record{
		Date:       contracts.FormatDate(date),
		Candidates: candidates,
		UpdatedAt:  time.Now(),
	}
	if rec.Candidates == nil {
		rec.Candidates = map[string]contracts.Candidate{}
	}
	return c.store.Save(ctx, rec)
}
