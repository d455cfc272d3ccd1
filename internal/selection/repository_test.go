package selection

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/database"
)

func TestRepository_SaveAndLoad(t *testing.T) {
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

	repo := NewRepository(db.Pool)
	date := time.Date(1999, 1, 4, 0, 0, 0, 0, time.UTC)
	ranked := Rank([]contracts.Candidate{cand("A", 100, 9, nil), cand("B", 100, 8, nil)})
	alloc := Heuristic(ranked, 2, "test")

	require.NoError(t, repo.Save(ctx, date, "run-1", ranked, alloc))
	// 재실행은 덮어쓴다
	require.NoError(t, repo.Save(ctx, date, "run-2", ranked[:1], Heuristic(ranked[:1], 2, "test")))

	got, err := repo.GetAllocation(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Positions, 1)

	rows, err := repo.GetRanking(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, codes(rows))

	missing, err := repo.GetAllocation(ctx, date.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = db.Pool.Exec(ctx, `DELETE FROM threes.selections WHERE run_date = $1`, date)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `DELETE FROM threes.candidate_scores WHERE run_date = $1`, date)
	require.NoError(t, err)
}
