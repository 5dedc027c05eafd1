package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wonny/valuepool/internal/scheduler"
	"github.com/wonny/valuepool/internal/scheduler/jobs"
	"github.com/wonny/valuepool/pkg/config"
	"github.com/wonny/valuepool/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `장 마감 후 일봉 재수집 작업을 스케줄합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run index_collection`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (Asia/Seoul):
- index_collection: 평일 16:00 (지수 일봉, 최근 COLLECTOR_LOOKBACK_DAYS 일)
- stock_collection: 평일 16:30 (상장 종목 갱신 + 종목 일봉)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}
)

const (
	jobRetries    = 2
	jobRetryDelay = time.Minute
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== valuepool Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	stack, err := newCollectStack(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer stack.Close()

	sched, err := newScheduler(cfg, log, stack.collector, stack.universe)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	PrintSuccess("Scheduler started")
	printJobTable(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	// listing never runs a job, so no collector is wired
	sched, err := newScheduler(cfg, log, nil, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	printJobTable(sched)
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	stack, err := newCollectStack(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	sched, err := newScheduler(cfg, log, stack.collector, stack.universe)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		PrintError(fmt.Sprintf("%s failed after %s: %v", jobName, result.Duration.Round(time.Millisecond), err))
		return err
	}
	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	return nil
}

// newScheduler registers the collection jobs on a Seoul-time scheduler
func newScheduler(cfg *config.Config, log *logger.Logger, runner jobs.Runner, universe jobs.UniverseFunc) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		log.WithError(err).Warn("Asia/Seoul unavailable, scheduling in local time")
		loc = time.Local
	}

	sched := scheduler.New(log,
		scheduler.WithLocation(loc),
		scheduler.WithRetry(jobRetries, jobRetryDelay),
	)

	lookback := cfg.Collector.LookbackDays
	for _, job := range []scheduler.Job{
		jobs.NewIndexCollectionJob(runner, cfg.Collector.IndexCodes, lookback, log),
		jobs.NewStockCollectionJob(runner, universe, lookback, log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func printJobTable(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	widths := []int{18, 22, 6, 6, 8}
	fmt.Println()
	PrintTableHeader([]string{"JOB", "SCHEDULE", "RUNS", "FAILS", "STREAK"}, widths)
	for _, name := range sched.GetAllJobs() {
		s := stats[name]
		PrintTableRow([]string{
			name,
			s.Schedule,
			fmt.Sprintf("%d", s.TotalRuns),
			fmt.Sprintf("%d", s.FailureCount),
			fmt.Sprintf("%d", s.ConsecutiveFailures),
		}, widths)
	}
}
