package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/external/naver"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
)

// fakeSource fails bundles per instrument code
type fakeSource struct {
	failTech  map[string]bool
	failOther bool
	block     bool
	calls     int32
}

func (f *fakeSource) FetchTechnical(ctx context.Context, inst contracts.Instrument) (*contracts.TechnicalBundle, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failTech[inst.Code] {
		return nil, errors.New("chart down")
	}
	return &contracts.TechnicalBundle{Price: 1000, Return5D: 2.5}, nil
}

func (f *fakeSource) FetchFundamental(ctx context.Context, inst contracts.Instrument) (*contracts.FundamentalBundle, error) {
	if f.failOther {
		return nil, errors.New("fundamental down")
	}
	return &contracts.FundamentalBundle{PER: 10}, nil
}

func (f *fakeSource) FetchFlow(ctx context.Context, inst contracts.Instrument) (*contracts.FlowBundle, error) {
	if f.failOther {
		return nil, errors.New("flow down")
	}
	return &contracts.FlowBundle{ForeignNet: 100}, nil
}

func (f *fakeSource) FetchNews(ctx context.Context, inst contracts.Instrument) (*contracts.NewsBundle, error) {
	if f.failOther {
		return nil, errors.New("news down")
	}
	return &contracts.NewsBundle{Items: []contracts.NewsItem{{Title: "headline"}}}, nil
}

func instruments(n int) []contracts.Instrument {
	out := make([]contracts.Instrument, n)
	for i := range out {
		out[i] = contracts.Instrument{Code: fmt.Sprintf("%06d", i+1), Name: fmt.Sprintf("종목%d", i+1)}
	}
	return out
}

func TestCollect_AllBundles(t *testing.T) {
	c := NewCollector(&fakeSource{}, Config{}, nil, logger.NewNop())

	snap, missing, err := c.Collect(context.Background(), contracts.Instrument{Code: "005930"})
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, 1000.0, snap.LastPrice())
	assert.NotNil(t, snap.Fundamental)
	assert.NotNil(t, snap.Flow)
	assert.False(t, snap.News.IsEmpty())
}

func TestCollect_NonTechnicalFailuresAreIndependent(t *testing.T) {
	rec := metrics.New()
	c := NewCollector(&fakeSource{failOther: true}, Config{}, rec, logger.NewNop())

	snap, missing, err := c.Collect(context.Background(), contracts.Instrument{Code: "005930"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{BundleFundamental, BundleFlow, BundleNews}, missing)
	assert.True(t, snap.IsValid())
	assert.Nil(t, snap.Fundamental)
	assert.Nil(t, snap.Flow)
	assert.Nil(t, snap.News)
}

func TestCollect_MissingTechnicalDropsInstrument(t *testing.T) {
	c := NewCollector(&fakeSource{failTech: map[string]bool{"005930": true}}, Config{}, nil, logger.NewNop())

	snap, _, err := c.Collect(context.Background(), contracts.Instrument{Code: "005930"})
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, contracts.ErrSourceFailure)
}

func TestCollect_PerBundleTimeout(t *testing.T) {
	c := NewCollector(&fakeSource{block: true}, Config{SourceTimeout: 20 * time.Millisecond}, nil, logger.NewNop())

	start := time.Now()
	_, missing, err := c.Collect(context.Background(), contracts.Instrument{Code: "005930"})
	assert.ErrorIs(t, err, contracts.ErrSourceFailure)
	assert.Contains(t, missing, BundleTechnical)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCollectAll_PreservesOrderAndDrops(t *testing.T) {
	insts := instruments(12)
	src := &fakeSource{failTech: map[string]bool{"000003": true, "000007": true}}
	c := NewCollector(src, Config{}, nil, logger.NewNop())

	snaps, results := c.CollectAll(context.Background(), insts, 4)
	require.Len(t, results, 12)
	require.Len(t, snaps, 10)
	assert.Equal(t, int32(12), atomic.LoadInt32(&src.calls), "no retries within a run")

	prev := ""
	for _, s := range snaps {
		assert.Greater(t, s.Instrument.Code, prev)
		prev = s.Instrument.Code
	}
	assert.Error(t, results[2].Error)
	assert.Error(t, results[6].Error)
}

func TestCollectAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(&fakeSource{}, Config{}, nil, logger.NewNop())
	snaps, results := c.CollectAll(ctx, instruments(3), 2)
	assert.Empty(t, snaps)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}

func TestFlowFromRows(t *testing.T) {
	rows := []naver.InvestorFlowData{
		{ForeignNet: 10, InstitutionNet: -5},
		{ForeignNet: 20, InstitutionNet: 5},
		{ForeignNet: -30, InstitutionNet: 1},
		{ForeignNet: 1, InstitutionNet: 1},
		{ForeignNet: 1, InstitutionNet: 1},
		{ForeignNet: 1000, InstitutionNet: 1000},
	}
	fb, err := flowFromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, int64(10), fb.ForeignNet)
	assert.Equal(t, int64(-5), fb.InstitutionNet)
	assert.Equal(t, int64(2), fb.ForeignNet5D)
	assert.Equal(t, int64(3), fb.InstitutionNet5D)
	assert.Equal(t, 5, fb.Days)

	_, err = flowFromRows(nil)
	assert.Error(t, err)
}

func TestSaveRaw_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	snaps := []*contracts.Snapshot{{
		Instrument: contracts.Instrument{Code: "005930"},
		Technical:  &contracts.TechnicalBundle{Price: 70000},
	}}

	require.NoError(t, SaveRaw(dir, date, snaps))
	rec, found, err := LoadRaw(dir, date)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-01-15", rec.Date)
	assert.Equal(t, 70000.0, rec.Snapshots[0].LastPrice())

	_, found, err = LoadRaw(dir, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, found)
}
