package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profileFile string
	stateDir    string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "3S Trader KR - 일일 종목 선정 파이프라인",
	Long: `3S Trader KR Unified CLI

한국 주식 일일 종목 선정 파이프라인.
Universe → Collect → Score → Strategy → Select → Trajectory

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant run
  go run ./cmd/quant run --date 2026-10-15 --dry-run
  go run ./cmd/quant schedule start
  go run ./cmd/quant api
  go run ./cmd/quant trajectory show`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&profileFile, "profile", "", "strategy profile YAML (default: STRATEGY_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "state directory (default: STATE_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
