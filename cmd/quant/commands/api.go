package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/wonny/valuepool/internal/api"
	"github.com/wonny/valuepool/internal/api/handlers"
	"github.com/wonny/valuepool/internal/backtest"
	"github.com/wonny/valuepool/internal/s0_data"
	"github.com/wonny/valuepool/internal/s0_data/collector"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                - Health check (DB 포함)
  GET  /metrics               - Prometheus metrics
  POST /api/backtests         - 전략 JSON으로 백테스트 실행
  GET  /api/bars/{code}       - 일봉 조회 (?from=&to=)
  GET  /api/collector/status  - 수집 체크포인트 요약

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

const apiShutdownTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== valuepool API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	rc := openRedis(ctx, cfg, log)
	defer rc.Close()

	reg := prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// API runs never render files, so the engine has no sink
	engine := newDatabaseEngine(db, rc, cfg, nil, backtest.NewMetrics(reg), log)

	var status handlers.StatusLister
	store, err := collector.OpenStatusStore(ctx, cfg.Collector.StatusDBPath)
	if err != nil {
		log.WithError(err).Warn("Collector status store unavailable")
	} else {
		defer store.Close()
		status = store
	}

	router := api.NewRouter(api.Dependencies{
		Backtest: handlers.NewBacktestHandler(engine, cfg.Backtest, log),
		Data:     handlers.NewDataHandler(s0_data.NewBarRepository(db.Pool), status, log),
		Health:   db,
		Gatherer: reg,
	}, log)

	server := api.New(cfg, log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	PrintList([]string{
		"GET  /health",
		"GET  /metrics",
		"POST /api/backtests",
		"GET  /api/bars/{code}",
		"GET  /api/collector/status",
	})
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx, apiShutdownTimeout); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
