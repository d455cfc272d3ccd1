// Package trajectory keeps the bounded decision history that drives the
// strategy loop and backfills realized returns into it.
package trajectory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// DefaultSize is K, the number of entries kept
const DefaultSize = 30

// returnPlaces is the rounding applied to return_pct and perf
const returnPlaces = 4

var hundred = decimal.NewFromInt(100)

// Tracker updates a TrajectoryLog in place
// ⭐ SSOT: S6 trajectory 갱신은 여기서만
type Tracker struct {
	prices  contracts.PriceSource
	size    int
	logger  *logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewTracker creates a tracker keeping at most size entries
func NewTracker(prices contracts.PriceSource, size int, rec *metrics.Recorder, log *logger.Logger) *Tracker {
	if size < 1 {
		size = DefaultSize
	}
	return &Tracker{
		prices:  prices,
		size:    size,
		logger:  log.WithModule("trajectory"),
		metrics: rec,
		now:     time.Now,
	}
}

// Size returns K
func (t *Tracker) Size() int {
	return t.size
}

// Record upserts entry by date, keeps date order and evicts the oldest
// entries beyond K. Re-running a date overwrites its entry.
func (t *Tracker) Record(log *contracts.TrajectoryLog, entry contracts.TrajectoryEntry) {
	replaced := false
	for i := range log.Entries {
		if log.Entries[i].Date == entry.Date {
			log.Entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		log.Entries = append(log.Entries, entry)
		sort.SliceStable(log.Entries, func(i, j int) bool {
			return log.Entries[i].Date < log.Entries[j].Date
		})
	}
	t.truncate(log)
}

func (t *Tracker) truncate(log *contracts.TrajectoryLog) {
	if over := len(log.Entries) - t.size; over > 0 {
		kept := make([]contracts.TrajectoryEntry, t.size)
		copy(kept, log.Entries[over:])
		log.Entries = kept
	}
}

// BackfillStats summarizes one backfill pass
type BackfillStats struct {
	Entries    int      `json:"entries"`    // today 제외 대상 entry 수
	Backfilled int      `json:"backfilled"` // 이번에 가격이 붙은 entry 수
	Priced     int      `json:"priced"`     // 가격 조회 성공 종목 수
	Missing    []string `json:"missing"`    // 가격 조회 실패 종목
}

// Backfill fetches one current price per distinct instrument referenced by
// entries other than today's and recomputes their returns. Perf is the
// weighted mean over positions priced in this pass; a position whose price
// is unavailable keeps its previous return_pct (if any) but is excluded from
// perf. Running it twice with unchanged prices yields the same log.
func (t *Tracker) Backfill(ctx context.Context, log *contracts.TrajectoryLog, today string) (BackfillStats, error) {
	var stats BackfillStats

	seen := make(map[string]bool)
	codes := make([]string, 0)
	for _, e := range log.Entries {
		if e.Date == today {
			continue
		}
		stats.Entries++
		for _, p := range e.Positions {
			if p.BuyPrice > 0 && !seen[p.Code] {
				seen[p.Code] = true
				codes = append(codes, p.Code)
			}
		}
	}
	if len(codes) == 0 {
		return stats, nil
	}
	if t.prices == nil {
		return stats, fmt.Errorf("backfill: no price source")
	}

	prices, err := t.prices.FetchCurrentPrices(ctx, codes)
	if err != nil {
		return stats, fmt.Errorf("backfill: fetch current prices: %w", err)
	}
	for _, c := range codes {
		if p, ok := prices[c]; ok && p > 0 {
			stats.Priced++
		} else {
			stats.Missing = append(stats.Missing, c)
		}
	}

	now := t.now()
	var latest *contracts.TrajectoryEntry
	for i := range log.Entries {
		e := &log.Entries[i]
		if e.Date == today {
			continue
		}
		if applyPrices(e, prices) {
			e.Status = contracts.StatusBackfilled
			e.BackfilledAt = &now
			stats.Backfilled++
			latest = e
		}
	}

	if latest != nil && latest.Perf != nil {
		t.metrics.RecordPerf(*latest.Perf)
	}
	t.logger.WithFields(map[string]interface{}{
		"entries":    stats.Entries,
		"backfilled": stats.Backfilled,
		"priced":     stats.Priced,
		"missing":    len(stats.Missing),
	}).Info("Trajectory backfilled")
	return stats, nil
}

// applyPrices updates positions with a known price and recomputes perf over
// those positions only. A position left unpriced keeps its last return_pct
// for display but does not enter perf. Reports whether any position got a
// price this pass; perf is unchanged otherwise.
func applyPrices(e *contracts.TrajectoryEntry, prices map[string]float64) bool {
	priced := make([]contracts.TrajectoryPosition, 0, len(e.Positions))
	for i := range e.Positions {
		p := &e.Positions[i]
		cur, ok := prices[p.Code]
		if !ok || cur <= 0 || p.BuyPrice <= 0 {
			continue
		}
		ret := ReturnPct(p.BuyPrice, cur)
		price := cur
		p.CurrentPrice = &price
		p.ReturnPct = &ret
		priced = append(priced, *p)
	}
	if perf, ok := WeightedPerf(priced); ok {
		e.Perf = &perf
	}
	return len(priced) > 0
}

// ReturnPct returns (current / buy - 1) * 100 rounded to 4 places
func ReturnPct(buy, current float64) float64 {
	r := decimal.NewFromFloat(current).
		Div(decimal.NewFromFloat(buy)).
		Sub(decimal.NewFromInt(1)).
		Mul(hundred).
		Round(returnPlaces)
	f, _ := r.Float64()
	return f
}

// WeightedPerf returns the weight-weighted mean return over positions that
// have one. ok is false when their weights sum to zero.
func WeightedPerf(positions []contracts.TrajectoryPosition) (float64, bool) {
	num := decimal.Zero
	den := decimal.Zero
	for _, p := range positions {
		if p.ReturnPct == nil || p.Weight <= 0 {
			continue
		}
		w := decimal.NewFromFloat(p.Weight)
		num = num.Add(w.Mul(decimal.NewFromFloat(*p.ReturnPct)))
		den = den.Add(w)
	}
	if den.IsZero() {
		return 0, false
	}
	f, _ := num.Div(den).Round(returnPlaces).Float64()
	return f, true
}
