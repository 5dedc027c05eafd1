package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/collector"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "수집 체크포인트 상태",
	Long: `SQLite 체크포인트(COLLECTOR_STATUS_DB)의 작업별 상태를 표시합니다.

표시 정보:
- success / empty / error / pending 종목 수
- --failures 로 실패 종목과 마지막 에러

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --job backfill-stocks --failures
  go run ./cmd/quant status --watch 5s`,
	RunE: runStatus,
}

var (
	statusJob      string
	statusFailures bool
	statusWatch    time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusJob, "job", "", "특정 작업만 표시")
	statusCmd.Flags().BoolVar(&statusFailures, "failures", false, "실패 종목 표시")
	statusCmd.Flags().DurationVar(&statusWatch, "watch", 0, "갱신 간격 (0이면 한 번만)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, _, err := loadRuntime()
	if err != nil {
		return err
	}

	store, err := collector.OpenStatusStore(ctx, cfg.Collector.StatusDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if statusWatch <= 0 {
		return displayStatus(ctx, store)
	}

	ticker := time.NewTicker(statusWatch)
	defer ticker.Stop()

	for {
		// Clear screen (ANSI escape code)
		fmt.Print("\033[H\033[2J")
		fmt.Printf("Refresh: %v | Last update: %s\n\n", statusWatch, time.Now().Format("15:04:05"))
		if err := displayStatus(ctx, store); err != nil {
			return err
		}
		fmt.Println("\nPress Ctrl+C to stop")

		select {
		case <-ctx.Done():
			fmt.Println("\n✅ Status monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func displayStatus(ctx context.Context, store *collector.SQLiteStatusStore) error {
	jobNames := []string{statusJob}
	if statusJob == "" {
		var err error
		if jobNames, err = store.Jobs(ctx); err != nil {
			return err
		}
	}
	if len(jobNames) == 0 {
		PrintInfo("No collection runs recorded yet")
		return nil
	}

	widths := []int{24, 8, 8, 8, 8}
	PrintTableHeader([]string{"JOB", "SUCCESS", "EMPTY", "ERROR", "PENDING"}, widths)

	var failures []contracts.FetchStatus
	for _, name := range jobNames {
		statuses, err := store.List(ctx, name)
		if err != nil {
			return err
		}
		counts := collector.Counts(statuses)
		PrintTableRow([]string{
			name,
			fmt.Sprintf("%d", counts[contracts.FetchSuccess]),
			fmt.Sprintf("%d", counts[contracts.FetchEmpty]),
			fmt.Sprintf("%d", counts[contracts.FetchError]),
			fmt.Sprintf("%d", counts[contracts.FetchPending]),
		}, widths)

		for _, s := range statuses {
			if s.State == contracts.FetchError {
				failures = append(failures, s)
			}
		}
	}

	if statusFailures && len(failures) > 0 {
		fmt.Println()
		for _, f := range failures {
			PrintError(fmt.Sprintf("%s (attempts %d, %s): %s",
				f.Code, f.Attempts, f.UpdatedAt.Format("2006-01-02 15:04"), f.LastError))
		}
	}
	return nil
}
