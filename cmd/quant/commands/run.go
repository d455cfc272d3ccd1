package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/threes/backend/internal/brain"
	"github.com/wonny/threes/backend/internal/contracts"
)

// runCmd executes one pipeline pass
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 파이프라인 1회 실행",
	Long: `6단계 파이프라인을 1회 실행합니다.

S1 → S2 → S3 → S4 → S5 → S6

각 단계:
- S1: Universe (시총 상위 30)
- S2: Feature Collection (기술/재무/수급/뉴스)
- S3: Scoring (6차원 0-10, 일자별 캐시)
- S4: Strategy (trajectory 피드백)
- S5: Selection (비중 + 현금)
- S6: Trajectory (기록 + 수익률 backfill)

Flags:
  --date       실행 날짜 (기본: 최근 거래일)
  --dry-run    trajectory / raw / latest_run 저장 안 함

Example:
  go run ./cmd/quant run
  go run ./cmd/quant run --date 2026-10-15
  go run ./cmd/quant run --dry-run`,
	RunE: runPipeline,
}

var (
	runDate   string
	runDryRun bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "실행 날짜 (YYYY-MM-DD, 기본: 최근 거래일)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "결과를 저장하지 않음")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 3S Trader KR Pipeline ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	defer a.Close()

	date, err := resolveDate(ctx, a, runDate)
	if err != nil {
		return err
	}

	fmt.Printf("\n📅 Run Date: %s\n", contracts.FormatDate(date))
	fmt.Printf("🔧 Dry Run: %v\n\n", runDryRun)

	result, err := a.orchestrator.Run(ctx, brain.RunConfig{Date: date, DryRun: runDryRun})
	if result != nil {
		printRunResult(result)
	}
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	return nil
}

// resolveDate parses --date or asks the trading calendar for the latest
// trading day
func resolveDate(ctx context.Context, a *app, flag string) (time.Time, error) {
	if flag != "" {
		parsed, err := time.Parse(contracts.DateLayout, flag)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date format: %w", err)
		}
		return parsed, nil
	}
	return brain.ResolveRunDate(ctx, a.naver, time.Now(), a.log), nil
}

func printRunResult(result *brain.RunResult) {
	fmt.Println()
	if result.Success {
		PrintSuccess("Pipeline Run Completed")
	} else {
		PrintError("Pipeline Run Failed: " + result.Error)
	}
	fmt.Println()

	PrintKeyValue("Run ID", result.RunID, 10)
	PrintKeyValue("Date", result.Date, 10)
	PrintKeyValue("Duration", fmt.Sprintf("%.2fs", result.Duration.Seconds()), 10)
	if result.Universe != nil {
		PrintKeyValue("Universe", fmt.Sprintf("%d stocks (%s)", result.Universe.Count(), result.Universe.Source), 10)
	}
	PrintKeyValue("Scored", fmt.Sprintf("%d (cache hits %d, dropped %d)", len(result.Candidates), result.CacheHits, len(result.Dropped)), 10)
	fmt.Println()

	fmt.Println("Completed Stages:")
	for _, stage := range result.CompletedStages {
		fmt.Printf("  ✅ %s (%dms)\n", stage, result.StageDurations[stage])
	}
	fmt.Println()

	if result.Strategy.Text != "" {
		PrintDoubleSeparator()
		fmt.Printf("  Strategy [%s]\n", result.Strategy.Source)
		PrintSeparator()
		fmt.Printf("  %s\n", result.Strategy.Text)
		if result.Strategy.HasEmphasis() {
			parts := make([]string, 0, len(result.Strategy.Emphasis))
			for _, d := range contracts.SortedDimensions(result.Strategy.Emphasis) {
				parts = append(parts, fmt.Sprintf("%s=%.2f", d, result.Strategy.Emphasis[d]))
			}
			fmt.Printf("  Emphasis: %s\n", strings.Join(parts, ", "))
		}
		fmt.Println()
	}

	if len(result.Allocation.Positions) > 0 || result.Allocation.CashWeight > 0 {
		PrintDoubleSeparator()
		fmt.Printf("  Allocation [%s]\n", result.Allocation.Source)
		PrintSeparator()
		widths := []int{8, 16, 8, 10}
		PrintTableHeader([]string{"Code", "Name", "Weight", "Price"}, widths)
		for _, p := range result.Allocation.Positions {
			PrintTableRow([]string{
				p.Code,
				p.Name,
				fmt.Sprintf("%.1f%%", p.Weight*100),
				formatNumber(int64(p.BuyPrice)),
			}, widths)
		}
		PrintTableRow([]string{"CASH", "", fmt.Sprintf("%.1f%%", result.Allocation.CashWeight*100), ""}, widths)
		fmt.Println()
	}

	if result.Backfill.Backfilled > 0 {
		PrintInfo(fmt.Sprintf("Backfilled %d entries (%d positions priced, %d missing)",
			result.Backfill.Backfilled, result.Backfill.Priced, len(result.Backfill.Missing)))
	}
	if q := result.Quality; q != nil && !q.Passed() {
		PrintWarning(fmt.Sprintf("Collection coverage %.0f%%, short on: %s", q.Score*100, strings.Join(q.Shortfalls, ", ")))
	}
	if result.Degraded() {
		stages := make([]string, 0, len(result.Fallbacks))
		for stage, n := range result.Fallbacks {
			stages = append(stages, fmt.Sprintf("%s=%d", stage, n))
		}
		sort.Strings(stages)
		PrintWarning("Degraded run, fallbacks: " + strings.Join(stages, ", "))
	}
}
