package trajectory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/database"
	"github.com/wonny/threes/backend/pkg/logger"
)

type fakePrices struct {
	prices map[string]float64
	err    error
	calls  int
	asked  []string
}

func (f *fakePrices) FetchCurrentPrices(ctx context.Context, codes []string) (map[string]float64, error) {
	f.calls++
	f.asked = append([]string(nil), codes...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64)
	for _, c := range codes {
		if p, ok := f.prices[c]; ok {
			out[c] = p
		}
	}
	return out, nil
}

func entry(date string, positions ...contracts.TrajectoryPosition) contracts.TrajectoryEntry {
	return contracts.TrajectoryEntry{Date: date, Strategy: "s-" + date, Positions: positions, Status: contracts.StatusProposed}
}

func pos(code string, weight, buy float64) contracts.TrajectoryPosition {
	return contracts.TrajectoryPosition{Code: code, Weight: weight, BuyPrice: buy}
}

func dates(log *contracts.TrajectoryLog) []string {
	out := make([]string, 0, log.Len())
	for _, e := range log.Entries {
		out = append(out, e.Date)
	}
	return out
}

func TestRecord_UpsertAndOrder(t *testing.T) {
	tr := NewTracker(nil, 30, nil, logger.NewNop())
	log := &contracts.TrajectoryLog{}

	tr.Record(log, entry("2024-01-03"))
	tr.Record(log, entry("2024-01-01"))
	tr.Record(log, entry("2024-01-02"))
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates(log))

	rerun := entry("2024-01-02")
	rerun.Strategy = "second run"
	tr.Record(log, rerun)
	require.Equal(t, 3, log.Len(), "same date overwrites")
	assert.Equal(t, "second run", log.Entries[1].Strategy)
}

func TestRecord_EvictsOldest(t *testing.T) {
	tr := NewTracker(nil, 3, nil, logger.NewNop())
	log := &contracts.TrajectoryLog{}

	for d := 1; d <= 4; d++ {
		tr.Record(log, entry(fmt.Sprintf("2024-01-%02d", d)))
		assert.LessOrEqual(t, log.Len(), 3)
	}
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, dates(log))
}

func TestReturnPct_ScenarioE(t *testing.T) {
	assert.Equal(t, 10.0, ReturnPct(1000, 1100))
	assert.Equal(t, -5.0, ReturnPct(2000, 1900))
	assert.Equal(t, 33.3333, ReturnPct(3, 4))
}

func TestWeightedPerf(t *testing.T) {
	r := func(v float64) *float64 { return &v }

	perf, ok := WeightedPerf([]contracts.TrajectoryPosition{
		{Code: "A", Weight: 0.6, ReturnPct: r(10)},
		{Code: "B", Weight: 0.2, ReturnPct: r(-5)},
		{Code: "C", Weight: 0.2}, // 가격 없음: 제외
	})
	require.True(t, ok)
	assert.InDelta(t, (0.6*10+0.2*-5)/0.8, perf, 1e-4)

	_, ok = WeightedPerf([]contracts.TrajectoryPosition{{Code: "C", Weight: 0.5}})
	assert.False(t, ok)
}

func TestBackfill(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"A": 1100, "B": 4500, "C": 1000}}
	tr := NewTracker(prices, 30, nil, logger.NewNop())
	fixed := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{
		entry("2024-01-08", pos("A", 0.5, 1000), pos("B", 0.5, 5000)),
		entry("2024-01-09", pos("A", 0.4, 1000), pos("MISSING", 0.4, 100)),
		entry("2024-01-10", pos("C", 1, 900)),
	}}

	stats, err := tr.Backfill(context.Background(), log, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, prices.calls, "one batch fetch")
	assert.ElementsMatch(t, []string{"A", "B", "MISSING"}, prices.asked, "today's codes excluded")
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.Backfilled)
	assert.Equal(t, []string{"MISSING"}, stats.Missing)

	first := log.Entries[0]
	assert.Equal(t, contracts.StatusBackfilled, first.Status)
	require.NotNil(t, first.Positions[0].ReturnPct)
	assert.Equal(t, 10.0, *first.Positions[0].ReturnPct)
	assert.Equal(t, 1100.0, *first.Positions[0].CurrentPrice)
	assert.Equal(t, -10.0, *first.Positions[1].ReturnPct)
	require.NotNil(t, first.Perf)
	assert.Equal(t, 0.0, *first.Perf)
	assert.Equal(t, fixed, *first.BackfilledAt)

	second := log.Entries[1]
	assert.Nil(t, second.Positions[1].ReturnPct, "unpriced position is not zero")
	require.NotNil(t, second.Perf)
	assert.Equal(t, 10.0, *second.Perf)

	today := log.Entries[2]
	assert.Equal(t, contracts.StatusProposed, today.Status)
	assert.Nil(t, today.Positions[0].ReturnPct)
	assert.Nil(t, today.Perf)
}

func TestBackfill_Idempotent(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"A": 1234, "B": 987}}
	tr := NewTracker(prices, 30, nil, logger.NewNop())
	fixed := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{
		entry("2024-01-08", pos("A", 0.3, 1111), pos("B", 0.3, 1000)),
	}}

	_, err := tr.Backfill(context.Background(), log, "2024-01-10")
	require.NoError(t, err)
	once := *log.Entries[0].Positions[0].ReturnPct
	oncePerf := *log.Entries[0].Perf

	_, err = tr.Backfill(context.Background(), log, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, once, *log.Entries[0].Positions[0].ReturnPct)
	assert.Equal(t, oncePerf, *log.Entries[0].Perf)
}

func TestBackfill_StaleReturnExcludedFromPerf(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"A": 1100, "B": 2000}}
	tr := NewTracker(prices, 30, nil, logger.NewNop())

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{
		entry("2024-01-08", pos("A", 0.5, 1000), pos("B", 0.5, 1000)),
	}}
	_, err := tr.Backfill(context.Background(), log, "2024-01-09")
	require.NoError(t, err)
	require.NotNil(t, log.Entries[0].Perf)
	assert.Equal(t, 55.0, *log.Entries[0].Perf)

	// 다음 날 B 가격 조회 실패
	prices.prices = map[string]float64{"A": 1200}
	stats, err := tr.Backfill(context.Background(), log, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, stats.Missing)

	e := log.Entries[0]
	assert.Equal(t, 20.0, *e.Positions[0].ReturnPct)
	require.NotNil(t, e.Positions[1].ReturnPct)
	assert.Equal(t, 100.0, *e.Positions[1].ReturnPct, "last known return is kept")
	assert.Equal(t, 20.0, *e.Perf, "only positions priced this pass enter perf")
}

func TestBackfill_NothingToDo(t *testing.T) {
	prices := &fakePrices{}
	tr := NewTracker(prices, 30, nil, logger.NewNop())

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{entry("2024-01-10", pos("A", 1, 100))}}
	stats, err := tr.Backfill(context.Background(), log, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 0, prices.calls)
	assert.Equal(t, 0, stats.Entries)
}

func TestBackfill_PriceSourceError(t *testing.T) {
	prices := &fakePrices{err: errors.New("polling api down")}
	tr := NewTracker(prices, 30, nil, logger.NewNop())

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{entry("2024-01-08", pos("A", 1, 100))}}
	_, err := tr.Backfill(context.Background(), log, "2024-01-10")
	assert.Error(t, err)
	assert.Equal(t, contracts.StatusProposed, log.Entries[0].Status)
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{entry("2024-01-08", pos("A", 1, 100))}}
	require.NoError(t, s.Save(ctx, log))

	raw, err := os.ReadFile(filepath.Join(dir, "trajectory.json"))
	require.NoError(t, err)
	assert.Equal(t, byte('['), raw[0], "persisted as a JSON array")

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, log.Entries, got.Entries)
}

type memStore struct {
	log     *contracts.TrajectoryLog
	saveErr error
	saves   int
}

func (m *memStore) Load(ctx context.Context) (*contracts.TrajectoryLog, error) {
	if m.log == nil {
		return &contracts.TrajectoryLog{}, nil
	}
	return m.log, nil
}

func (m *memStore) Save(ctx context.Context, log *contracts.TrajectoryLog) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.log = log
	return nil
}

func TestMultiStore(t *testing.T) {
	ctx := context.Background()
	primary := &memStore{}
	archive := &memStore{saveErr: errors.New("db down")}
	s := NewMultiStore(primary, archive, logger.NewNop())

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{entry("2024-01-08")}}
	require.NoError(t, s.Save(ctx, log), "archive failure is best-effort")
	assert.Equal(t, 1, archive.saves)

	primary.saveErr = errors.New("disk full")
	assert.Error(t, s.Save(ctx, log))
}

func TestMultiStore_RestoresFromArchive(t *testing.T) {
	archived := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{entry("2024-01-05")}}
	s := NewMultiStore(&memStore{}, &memStore{log: archived}, logger.NewNop())

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-05"}, dates(got))
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 1}})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	s := NewPostgresStore(db.Pool)
	before, err := s.Load(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Save(ctx, before) })

	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{entry("2024-01-08", pos("A", 1, 100))}}
	require.NoError(t, s.Save(ctx, log))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, dates(log), dates(got))
}
