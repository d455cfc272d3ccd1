// Package scheduler runs registered jobs on cron schedules with retry and
// per-job history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/threes/backend/pkg/logger"
)

// Options configure a Scheduler
type Options struct {
	Location   *time.Location // nil = Asia/Seoul, 실패 시 Local
	MaxRetries int            // 첫 실행 이후 재시도 횟수
	RetryDelay time.Duration
}

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	maxRetries int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new scheduler. Overlapping runs of the same job are skipped.
func New(opts Options, log *logger.Logger) *Scheduler {
	log = log.WithModule("scheduler")
	loc := opts.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("Asia/Seoul"); err != nil {
			loc = time.Local
		}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:     log,
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		history:    make(map[string]*JobHistory),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		sleep:      sleepCtx,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.entries[name] = id
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

// RemoveJob removes a job from the scheduler; its history is kept
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.entries, name)

	s.logger.WithField("job", name).Info("Job removed from scheduler")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Wait blocks until jobs started with RunJob return, without cancelling them
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunJob runs a job immediately (outside of schedule)
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job)
	}()
	return nil
}

// NextRun returns the next scheduled time of a job
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	id, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// runJob executes a job with retry. Cancellation stops retrying.
func (s *Scheduler) runJob(job Job) JobResult {
	name := job.Name()
	start := time.Now()
	log := s.logger.WithField("job", name)
	log.Info("Job started")

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		lastErr = job.Run(s.ctx)
		if lastErr == nil || errors.Is(lastErr, context.Canceled) {
			break
		}

		log.WithError(lastErr).WithField("attempt", attempt+1).Warn("Job execution failed")
		if attempt < s.maxRetries {
			if err := s.sleep(s.ctx, s.retryDelay); err != nil {
				break
			}
		}
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Attempts:  attempts,
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.AddResult(result)
	}
	s.mu.Unlock()

	if result.Success {
		log.WithFields(map[string]interface{}{
			"duration": result.Duration.Seconds(),
			"attempts": attempts,
		}).Info("Job completed successfully")
	} else {
		log.WithError(lastErr).WithField("attempts", attempts).Error("Job failed after all retries")
	}
	return result
}

// History returns a copy of the history for a job
func (s *Scheduler) History(name string) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return h.Latest(len(h.Results)), nil
}

// Jobs returns registered job names, sorted
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns statistics for all registered jobs
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, job := range s.jobs {
		h := s.history[name]
		st := JobStats{
			JobName:      name,
			Schedule:     job.Schedule(),
			TotalRuns:    len(h.Results),
			FailureCount: h.Failures(),
			SuccessRate:  h.SuccessRate(),
		}
		st.SuccessCount = st.TotalRuns - st.FailureCount
		if latest := h.Latest(1); len(latest) == 1 {
			t := latest[0].StartTime
			st.LastRun = &t
			if latest[0].Success {
				st.LastSuccess = &t
			} else {
				st.LastFailure = &t
			}
		}
		stats[name] = st
	}
	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cronLogger adapts the app logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kv(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(kv(keysAndValues)).Error(msg)
}

func kv(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
