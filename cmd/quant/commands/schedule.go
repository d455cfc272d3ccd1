package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/threes/backend/internal/scheduler"
	"github.com/wonny/threes/backend/internal/scheduler/jobs"
)

// rawKeepDays bounds how long per-run raw snapshots are kept
const rawKeepDays = 30

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "스케줄러 관리",
	Long: `정기 파이프라인 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작 (Ctrl+C 종료)
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/quant schedule start
  go run ./cmd/quant schedule start --with-api
  go run ./cmd/quant schedule run daily_pipeline`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_pipeline: 평일 18:30 (SCHEDULE_CRON 또는 프로필 decision_time_local)
- raw_cleanup: 매일 03:00 (30일 지난 raw 스냅샷 삭제)`,
		RunE: runScheduler,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}

	scheduleWithAPI bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)

	scheduleStartCmd.Flags().BoolVar(&scheduleWithAPI, "with-api", false, "API 서버를 함께 실행")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 3S Trader KR Scheduler ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	errCh := make(chan error, 1)
	if scheduleWithAPI {
		server := newAPIServer(a)
		go func() {
			errCh <- server.Start()
		}()
		defer shutdownAPIServer(a, server)
		fmt.Printf("\n✅ API running on http://localhost:%s\n", a.cfg.Port)
	}

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err = <-errCh:
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return err
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	sched.Wait()

	history, err := sched.History(jobName)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("job %s produced no result", jobName)
	}
	last := history[len(history)-1]
	if !last.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempts: %s", jobName, last.Attempts, last.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %.2fs", jobName, last.Duration.Seconds()))
	return nil
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", a.cfg.Schedule.Timezone, err)
	}

	sched := scheduler.New(scheduler.Options{
		Location:   loc,
		MaxRetries: 1,
		RetryDelay: 5 * time.Minute,
	}, a.log)

	if err := sched.AddJob(jobs.NewPipelineJob(a.orchestrator, a.naver, a.cfg.Schedule.Cron, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewRawCleanupJob(a.cfg.Pipeline.StateDir, rawKeepDays, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	stats := sched.Stats()
	for _, name := range sched.Jobs() {
		next := "-"
		if t, ok := sched.NextRun(name); ok {
			next = t.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("  - %-16s %-20s next: %s\n", name, stats[name].Schedule, next)
	}
}
