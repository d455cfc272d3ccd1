package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "점수 checkpoint 캐시 관리",
	Long: `당일 점수화 결과 checkpoint 캐시를 관리합니다.
캐시를 비우면 다음 실행에서 모든 종목을 다시 수집/점수화합니다.

Example:
  go run ./cmd/quant cache clear`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "checkpoint 캐시 삭제",
	RunE:  clearCache,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func clearCache(cmd *cobra.Command, args []string) error {
	a, err := newStoreApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if err := a.checkpoint.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	PrintSuccess("Checkpoint cache cleared")
	return nil
}
