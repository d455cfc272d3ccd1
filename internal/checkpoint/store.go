// Package checkpoint caches finished Candidates for the current run-date so
// a restarted run skips instruments already scored that day.
package checkpoint

import (
	"context"
	"path/filepath"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/fsutil"
	"github.com/wonny/threes/backend/pkg/redis"
)

// Record is the persisted cache shape: {date, candidates}
type Record struct {
	Date       string                         `json:"date"`
	Candidates map[string]contracts.Candidate `json:"candidates"`
	UpdatedAt  time.Time                      `json:"updated_at"`
}

// Store persists a single Record. Save replaces the whole record.
type Store interface {
	Load(ctx context.Context) (*Record, error) // nil, nil when absent
	Save(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}

// FileStore keeps the record in one JSON file rewritten atomically
type FileStore struct {
	path string
}

// NewFileStore creates a store at <stateDir>/checkpoint.json
func NewFileStore(stateDir string) *FileStore {
	return &FileStore{path: filepath.Join(stateDir, "checkpoint.json")}
}

// Path returns the backing file path
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	var rec Record
	found, err := fsutil.ReadJSON(s.path, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	return fsutil.WriteJSONAtomic(s.path, rec)
}

func (s *FileStore) Clear(ctx context.Context) error {
	return fsutil.Remove(s.path)
}

// RedisStore keeps the record under one Redis key with a TTL
type RedisStore struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(cache *redis.Cache, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = redis.TTLCheckpoint
	}
	return &RedisStore{cache: cache, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	var rec Record
	found, err := s.cache.Get(ctx, redis.CheckpointKey(), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	return s.cache.Set(ctx, redis.CheckpointKey(), rec, s.ttl)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, redis.CheckpointKey())
}
