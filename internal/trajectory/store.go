package trajectory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/fsutil"
	"github.com/wonny/threes/backend/pkg/logger"
)

// Store persists the whole TrajectoryLog. Save replaces, never appends.
type Store interface {
	Load(ctx context.Context) (*contracts.TrajectoryLog, error) // 없으면 빈 log
	Save(ctx context.Context, log *contracts.TrajectoryLog) error
}

// FileStore keeps the log as a JSON array rewritten atomically
type FileStore struct {
	path string
}

// NewFileStore creates a store at <stateDir>/trajectory.json
func NewFileStore(stateDir string) *FileStore {
	return &FileStore{path: filepath.Join(stateDir, "trajectory.json")}
}

// Path returns the backing file path
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*contracts.TrajectoryLog, error) {
	var entries []contracts.TrajectoryEntry
	if _, err := fsutil.ReadJSON(s.path, &entries); err != nil {
		return nil, fmt.Errorf("load trajectory: %w", err)
	}
	return &contracts.TrajectoryLog{Entries: entries}, nil
}

func (s *FileStore) Save(ctx context.Context, log *contracts.TrajectoryLog) error {
	entries := log.Entries
	if entries == nil {
		entries = []contracts.TrajectoryEntry{}
	}
	if err := fsutil.WriteJSONAtomic(s.path, entries); err != nil {
		return fmt.Errorf("save trajectory: %w", err)
	}
	return nil
}

// PostgresStore archives the log as one JSONB row
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an archive store (schema from database.Migrate)
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context) (*contracts.TrajectoryLog, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT entries FROM threes.trajectory_log WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return &contracts.TrajectoryLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query trajectory: %w", err)
	}

	var entries []contracts.TrajectoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trajectory: %w", err)
	}
	return &contracts.TrajectoryLog{Entries: entries}, nil
}

func (s *PostgresStore) Save(ctx context.Context, log *contracts.TrajectoryLog) error {
	entries := log.Entries
	if entries == nil {
		entries = []contracts.TrajectoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal trajectory: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO threes.trajectory_log (id, entries, entry_count, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			entries = EXCLUDED.entries,
			entry_count = EXCLUDED.entry_count,
			updated_at = NOW()
	`, raw, len(entries))
	if err != nil {
		return fmt.Errorf("failed to save trajectory: %w", err)
	}
	return tx.Commit(ctx)
}

// MultiStore writes the primary store first and mirrors to the archive
// best-effort. Load falls back to the archive when the primary is empty.
type MultiStore struct {
	primary Store
	archive Store
	logger  *logger.Logger
}

// NewMultiStore combines a primary store with an optional archive
func NewMultiStore(primary, archive Store, log *logger.Logger) *MultiStore {
	return &MultiStore{primary: primary, archive: archive, logger: log.WithModule("trajectory_store")}
}

func (s *MultiStore) Load(ctx context.Context) (*contracts.TrajectoryLog, error) {
	log, err := s.primary.Load(ctx)
	if err != nil {
		return nil, err
	}
	if log.Len() > 0 || s.archive == nil {
		return log, nil
	}

	archived, err := s.archive.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Trajectory archive unavailable")
		return log, nil
	}
	if archived.Len() > 0 {
		s.logger.WithField("entries", archived.Len()).Info("Trajectory restored from archive")
	}
	return archived, nil
}

func (s *MultiStore) Save(ctx context.Context, log *contracts.TrajectoryLog) error {
	if err := s.primary.Save(ctx, log); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, log); err != nil {
			s.logger.WithError(err).Warn("Trajectory archive write failed")
		}
	}
	return nil
}
