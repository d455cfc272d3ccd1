package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
)

// RawCleanupJob prunes per-run raw snapshot files older than keepDays
type RawCleanupJob struct {
	dir      string
	keepDays int
	logger   *logger.Logger
	now      func() time.Time
}

// NewRawCleanupJob creates a cleanup job over <stateDir>/raw
func NewRawCleanupJob(stateDir string, keepDays int, log *logger.Logger) *RawCleanupJob {
	if keepDays < 1 {
		keepDays = 30
	}
	return &RawCleanupJob{
		dir:      filepath.Join(stateDir, "raw"),
		keepDays: keepDays,
		logger:   log.WithModule("raw_cleanup"),
		now:      time.Now,
	}
}

// Name returns the job name
func (j *RawCleanupJob) Name() string {
	return "raw_cleanup"
}

// Schedule returns the cron schedule (매일 03:00)
func (j *RawCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run removes raw/<date>.json files dated before the cutoff
func (j *RawCleanupJob) Run(ctx context.Context) error {
	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	cutoff := contracts.FormatDate(j.now().AddDate(0, 0, -j.keepDays))
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse(contracts.DateLayout, date); err != nil || date >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil {
			j.logger.WithError(err).WithField("file", name).Warn("Failed to remove raw snapshot")
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Raw snapshot cleanup completed")
	}
	return nil
}
