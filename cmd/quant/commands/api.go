package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/threes/backend/internal/api"
	"github.com/wonny/threes/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `조회 전용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                   - Health check
  GET  /metrics                  - Prometheus metrics
  GET  /api/runs/latest          - 최근 실행 결과 (latest_run.json)
  GET  /api/candidates           - 최근 실행의 점수화 후보 (?source=)
  GET  /api/trajectory           - trajectory 이력 (?limit=)
  GET  /api/selections/{date}    - 보관된 선택 결과 (DATABASE_URL 필요)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 3S Trader KR API Server ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	server := newAPIServer(a)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return shutdownAPIServer(a, server)
}

// newAPIServer builds the read-only API over the app's stores
func newAPIServer(a *app) *api.Server {
	var archive handlers.SelectionArchive
	if a.selections != nil {
		archive = a.selections
	}
	h := handlers.NewRunHandler(a.cfg.Pipeline.StateDir, a.trajectory, archive, a.log)

	var metricsHandler http.Handler
	if a.metrics != nil {
		metricsHandler = a.metrics.Handler()
	}
	return api.New(a.cfg, a.log, api.NewRouter(h, metricsHandler, a.log))
}

func shutdownAPIServer(a *app, server *api.Server) error {
	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
