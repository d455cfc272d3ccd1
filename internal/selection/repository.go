package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/threes/backend/internal/contracts"
)

// Repository archives each run's ranking and allocation in Postgres
// ⭐ SSOT: Selection 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save replaces the date's ranking and allocation in one transaction
func (r *Repository) Save(ctx context.Context, date time.Time, runID string, ranked []contracts.Candidate, alloc contracts.Allocation) error {
	allocJSON, err := json.Marshal(alloc)
	if err != nil {
		return fmt.Errorf("failed to marshal allocation: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO threes.selections (run_date, run_id, source, cash_weight, allocation)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_date) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			source = EXCLUDED.source,
			cash_weight = EXCLUDED.cash_weight,
			allocation = EXCLUDED.allocation,
			created_at = NOW()
	`, date, runID, string(alloc.Source), alloc.CashWeight, allocJSON)
	if err != nil {
		return fmt.Errorf("failed to save allocation: %w", err)
	}

	// 재실행 시 같은 날짜 랭킹 교체
	if _, err := tx.Exec(ctx, `DELETE FROM threes.candidate_scores WHERE run_date = $1`, date); err != nil {
		return fmt.Errorf("failed to clear ranking: %w", err)
	}

	if len(ranked) > 0 {
		if err := saveRanking(ctx, tx, date, ranked); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAllocation returns the archived allocation for date
func (r *Repository) GetAllocation(ctx context.Context, date time.Time) (*contracts.Allocation, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT allocation FROM threes.selections WHERE run_date = $1`, date).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation: %w", err)
	}

	var alloc contracts.Allocation
	if err := json.Unmarshal(raw, &alloc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allocation: %w", err)
	}
	return &alloc, nil
}

// GetRanking returns the archived ranking for date in rank order
func (r *Repository) GetRanking(ctx context.Context, date time.Time) ([]contracts.Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT candidate FROM threes.candidate_scores
		WHERE run_date = $1
		ORDER BY rank
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	defer rows.Close()

	ranked := make([]contracts.Candidate, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		var c contracts.Candidate
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
		}
		ranked = append(ranked, c)
	}
	return ranked, rows.Err()
}

func saveRanking(ctx context.Context, tx pgx.Tx, date time.Time, ranked []contracts.Candidate) error {
	batch := &pgx.Batch{}
	for i, c := range ranked {
		candJSON, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal candidate %s: %w", c.Code(), err)
		}
		batch.Queue(`
			INSERT INTO threes.candidate_scores (run_date, code, rank, total, source, candidate)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (run_date, code) DO NOTHING
		`, date, c.Code(), i+1, c.AggregateScore(), string(c.Source), candJSON)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range ranked {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save ranking: %w", err)
		}
	}
	return br.Close()
}
