// Package jobs holds the scheduled jobs of the quant service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/threes/backend/internal/brain"
	"github.com/wonny/threes/backend/pkg/logger"
)

// DefaultPipelineSchedule is 18:30 on weekdays, after the KRX close data settles
const DefaultPipelineSchedule = "0 30 18 * * 1-5"

// Runner executes one pipeline pass
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// PipelineJob runs the full pipeline for the latest trading day
// ⭐ SSOT: 정기 파이프라인 실행은 이 Job 에서만
type PipelineJob struct {
	runner   Runner
	calendar brain.TradingCalendar
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewPipelineJob creates a pipeline job; calendar may be nil
func NewPipelineJob(runner Runner, calendar brain.TradingCalendar, schedule string, log *logger.Logger) *PipelineJob {
	if schedule == "" {
		schedule = DefaultPipelineSchedule
	}
	return &PipelineJob{
		runner:   runner,
		calendar: calendar,
		schedule: schedule,
		logger:   log.WithModule("pipeline_job"),
		now:      time.Now,
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "daily_pipeline"
}

// Schedule returns the cron schedule
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline
func (j *PipelineJob) Run(ctx context.Context) error {
	date := brain.ResolveRunDate(ctx, j.calendar, j.now(), j.logger)

	result, err := j.runner.Run(ctx, brain.RunConfig{Date: date})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"date":      result.Date,
		"positions": result.Allocation.Count(),
		"degraded":  result.Degraded(),
	}).Info("Scheduled pipeline run finished")
	return nil
}
