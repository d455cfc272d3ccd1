package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/internal/brain"
	"github.com/wonny/threes/backend/pkg/logger"
)

type fakeRunner struct {
	got brain.RunConfig
	err error
}

func (f *fakeRunner) Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error) {
	f.got = config
	if f.err != nil {
		return nil, f.err
	}
	return &brain.RunResult{RunID: "r1", Date: config.Date.Format("2006-01-02"), Fallbacks: map[string]int{}}, nil
}

type fakeCalendar struct{ day time.Time }

func (f fakeCalendar) LatestTradingDay(ctx context.Context, ref string, now time.Time) (time.Time, error) {
	return f.day, nil
}

func TestPipelineJob(t *testing.T) {
	friday := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	runner := &fakeRunner{}
	job := NewPipelineJob(runner, fakeCalendar{day: friday}, "", logger.NewNop())

	assert.Equal(t, DefaultPipelineSchedule, job.Schedule())
	assert.Equal(t, "daily_pipeline", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, friday, runner.got.Date)
	assert.False(t, runner.got.DryRun)

	runner.err = errors.New("universe empty")
	assert.Error(t, job.Run(context.Background()))
}

func TestRawCleanupJob(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	for _, name := range []string{"2024-01-01.json", "2024-02-20.json", "notes.txt", "garbage.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(raw, name), []byte("{}"), 0o644))
	}

	job := NewRawCleanupJob(dir, 30, logger.NewNop())
	job.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(context.Background()))

	left, err := os.ReadDir(raw)
	require.NoError(t, err)
	names := make([]string, 0, len(left))
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"2024-02-20.json", "notes.txt", "garbage.json"}, names)

	assert.NoError(t, NewRawCleanupJob(t.TempDir(), 30, logger.NewNop()).Run(context.Background()), "missing dir")
}
