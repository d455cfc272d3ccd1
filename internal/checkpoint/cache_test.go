package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/redis"
)

var runDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func candidate(code string) contracts.Candidate {
	return contracts.Candidate{
		Instrument: contracts.Instrument{Code: code, Name: "종목" + code},
		LastPrice:  1000,
		Scores:     contracts.NeutralScoreVector(),
		Source:     contracts.SourceNeutral,
	}
}

func TestCache_PutGetSameDate(t *testing.T) {
	c := New(NewFileStore(t.TempDir()), nil, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, runDate, map[string]contracts.Candidate{"005930": candidate("005930")}))

	got := c.Get(ctx, runDate)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got["005930"].Scores[contracts.DimVolatilityRisk])
}

func TestCache_StaleDateIgnoredWholesale(t *testing.T) {
	c := New(NewFileStore(t.TempDir()), nil, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, runDate, map[string]contracts.Candidate{"005930": candidate("005930")}))
	assert.Empty(t, c.Get(ctx, runDate.AddDate(0, 0, 1)))

	// 새 날짜로 Add 하면 이전 날짜 항목은 섞이지 않음
	require.NoError(t, c.Add(ctx, runDate.AddDate(0, 0, 1), candidate("000660")))
	got := c.Get(ctx, runDate.AddDate(0, 0, 1))
	assert.Len(t, got, 1)
	assert.Contains(t, got, "000660")
}

func TestCache_AbsentFile(t *testing.T) {
	c := New(NewFileStore(t.TempDir()), nil, logger.NewNop())
	assert.Empty(t, c.Get(context.Background(), runDate))
}

func TestCache_CorruptFileStartsFresh(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	c := New(store, nil, logger.NewNop())
	assert.Empty(t, c.Get(context.Background(), runDate))
	require.NoError(t, c.Add(context.Background(), runDate, candidate("005930")))
	assert.Len(t, c.Get(context.Background(), runDate), 1)
}

func TestCache_ConcurrentAdd(t *testing.T) {
	c := New(NewFileStore(t.TempDir()), nil, logger.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Add(ctx, runDate, candidate(fmt.Sprintf("%06d", i))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.Get(ctx, runDate), 20)
}

func TestCache_Clear(t *testing.T) {
	c := New(NewFileStore(t.TempDir()), nil, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, runDate, candidate("005930")))
	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, c.Get(ctx, runDate))
	assert.NoError(t, c.Clear(ctx), "clearing twice is fine")
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context) (*Record, error) { return nil, errors.New("down") }
func (failingStore) Save(ctx context.Context, rec *Record) error {
	return errors.New("down")
}
func (failingStore) Clear(ctx context.Context) error { return errors.New("down") }

func TestCache_StoreFailures(t *testing.T) {
	c := New(failingStore{}, nil, logger.NewNop())
	assert.Empty(t, c.Get(context.Background(), runDate))
	assert.Error(t, c.Add(context.Background(), runDate, candidate("005930")))
}

func TestRedisStore_DisabledClientMisses(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	c := New(NewRedisStore(redis.NewCache(client, "threes-test"), 0), nil, logger.NewNop())
	require.NoError(t, c.Add(context.Background(), runDate, candidate("005930")))
	assert.Empty(t, c.Get(context.Background(), runDate))
}

func TestRedisStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.Config{Redis: config.RedisConfig{Host: "localhost", Port: "6379", Enabled: true}}
	client, err := redis.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	c := New(NewRedisStore(redis.NewCache(client, "threes-test"), time.Minute), nil, logger.NewNop())
	require.NoError(t, c.Clear(ctx))
	defer c.Clear(ctx)

	require.NoError(t, c.Add(ctx, runDate, candidate("005930")))
	require.NoError(t, c.Add(ctx, runDate, candidate("000660")))
	assert.Len(t, c.Get(ctx, runDate), 2)
	assert.Empty(t, c.Get(ctx, runDate.AddDate(0, 0, -1)))
}
