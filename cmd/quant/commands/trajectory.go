package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/threes/backend/internal/audit"
)

// trajectoryCmd represents the trajectory command
var trajectoryCmd = &cobra.Command{
	Use:   "trajectory",
	Short: "trajectory 조회",
	Long: `과거 결정과 실현 수익률(trajectory)을 조회합니다.

Example:
  go run ./cmd/quant trajectory show
  go run ./cmd/quant trajectory show --limit 5
  go run ./cmd/quant trajectory show --json
  go run ./cmd/quant trajectory stats`,
}

var (
	trajectoryShowCmd = &cobra.Command{
		Use:   "show",
		Short: "최근 trajectory 출력 (최신순)",
		RunE:  showTrajectory,
	}

	trajectoryStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "실현 수익률 요약",
		RunE:  showTrajectoryStats,
	}

	trajectoryLimit int
	trajectoryJSON  bool
)

func init() {
	rootCmd.AddCommand(trajectoryCmd)
	trajectoryCmd.AddCommand(trajectoryShowCmd)
	trajectoryCmd.AddCommand(trajectoryStatsCmd)

	trajectoryShowCmd.Flags().IntVar(&trajectoryLimit, "limit", 10, "출력할 entry 수")
	trajectoryShowCmd.Flags().BoolVar(&trajectoryJSON, "json", false, "JSON 으로 출력")
}

func showTrajectory(cmd *cobra.Command, args []string) error {
	a, err := newStoreApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	log, err := a.trajectory.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load trajectory: %w", err)
	}
	entries := log.Tail(trajectoryLimit)

	if trajectoryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		PrintInfo("trajectory is empty")
		return nil
	}

	fmt.Printf("Trajectory: %d of %d entries\n\n", len(entries), log.Len())
	for _, e := range entries {
		PrintDoubleSeparator()
		fmt.Printf("  %s  [%s]  perf %s\n", e.Date, e.Status, formatPct(e.Perf))
		PrintSeparator()
		fmt.Printf("  %s\n\n", clipText(e.Strategy, 120))

		widths := []int{8, 14, 8, 10, 10, 9}
		PrintTableHeader([]string{"Code", "Name", "Weight", "Buy", "Current", "Return"}, widths)
		for _, p := range e.Positions {
			current := "-"
			if p.CurrentPrice != nil {
				current = formatNumber(int64(*p.CurrentPrice))
			}
			PrintTableRow([]string{
				p.Code,
				clipText(p.Name, 14),
				fmt.Sprintf("%.1f%%", p.Weight*100),
				formatNumber(int64(p.BuyPrice)),
				current,
				formatPct(p.ReturnPct),
			}, widths)
		}
		PrintTableRow([]string{"CASH", "", fmt.Sprintf("%.1f%%", e.CashWeight*100), "", "", ""}, widths)
		fmt.Println()
	}
	return nil
}

func showTrajectoryStats(cmd *cobra.Command, args []string) error {
	a, err := newStoreApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	log, err := a.trajectory.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load trajectory: %w", err)
	}
	report := audit.NewAnalyzer(a.log).Analyze(log)

	if trajectoryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if report.Evaluated == 0 {
		PrintInfo(fmt.Sprintf("%d entries, none backfilled yet", report.Entries))
		return nil
	}

	PrintDoubleSeparator()
	fmt.Printf("  Trajectory Performance  %s ~ %s\n", report.StartDate, report.EndDate)
	PrintSeparator()
	PrintKeyValue("Evaluated", fmt.Sprintf("%d / %d", report.Evaluated, report.Entries), 14)
	PrintKeyValue("Mean", formatPct(&report.MeanReturn), 14)
	PrintKeyValue("Median", formatPct(&report.MedianReturn), 14)
	PrintKeyValue("Volatility", fmt.Sprintf("%.2f", report.Volatility), 14)
	PrintKeyValue("VaR 95%", fmt.Sprintf("%.2f%% (CVaR %.2f%%)", report.VaR95, report.CVaR95), 14)
	PrintKeyValue("Win Rate", fmt.Sprintf("%.1f%%", report.WinRate*100), 14)
	PrintKeyValue("Avg Win/Loss", fmt.Sprintf("%s / %s", formatPct(&report.AvgWin), formatPct(&report.AvgLoss)), 14)
	PrintKeyValue("Profit Factor", fmt.Sprintf("%.2f", report.ProfitFactor), 14)
	if report.Best != nil && report.Worst != nil {
		PrintKeyValue("Best", fmt.Sprintf("%s %s", report.Best.Date, formatPct(&report.Best.Return)), 14)
		PrintKeyValue("Worst", fmt.Sprintf("%s %s", report.Worst.Date, formatPct(&report.Worst.Return)), 14)
	}
	PrintKeyValue("Position Hit", fmt.Sprintf("%.1f%% of %d", report.PositionHitRate*100, report.Positions), 14)
	PrintKeyValue("Avg Cash", fmt.Sprintf("%.1f%%", report.AvgCashWeight*100), 14)
	return nil
}

// clipText shortens s to n runes
func clipText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
