package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/collector"
	"github.com/wonny/valuepool/pkg/config"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "일봉 데이터 수집",
	Long: `네이버 금융에서 지수/종목 일봉과 연간 EPS를 수집해 PostgreSQL에 저장합니다.

종목별 진행 상태는 SQLite 체크포인트(COLLECTOR_STATUS_DB)에 기록되며
같은 --job 이름으로 다시 실행하면 성공/빈 종목은 건너뜁니다.

Subcommands:
  index   - 지수 일봉 (COLLECTOR_INDEX_CODES)
  stocks  - 상장 종목 목록 갱신 후 종목 일봉 + PER
  all     - index 후 stocks

Example:
  go run ./cmd/quant collect all
  go run ./cmd/quant collect stocks --from 2013-01-01 --job backfill-2013
  go run ./cmd/quant collect stocks --codes 005930,000660 --fresh`,
}

var (
	collectIndexCmd = &cobra.Command{
		Use:   "index",
		Short: "지수 일봉 수집",
		RunE:  func(cmd *cobra.Command, args []string) error { return runCollect(cmd, true, false) },
	}

	collectStocksCmd = &cobra.Command{
		Use:   "stocks",
		Short: "종목 일봉 수집",
		RunE:  func(cmd *cobra.Command, args []string) error { return runCollect(cmd, false, true) },
	}

	collectAllCmd = &cobra.Command{
		Use:   "all",
		Short: "지수 + 종목 일봉 수집",
		RunE:  func(cmd *cobra.Command, args []string) error { return runCollect(cmd, true, true) },
	}

	// Flags
	collectFrom  string
	collectTo    string
	collectJob   string
	collectCodes []string
	collectFresh bool
)

func init() {
	rootCmd.AddCommand(collectCmd)
	for _, c := range []*cobra.Command{collectIndexCmd, collectStocksCmd, collectAllCmd} {
		collectCmd.AddCommand(c)
		c.Flags().StringVar(&collectFrom, "from", "", "시작 날짜 (기본: COLLECTOR_START_DATE)")
		c.Flags().StringVar(&collectTo, "to", "", "종료 날짜 (기본: 오늘)")
		c.Flags().StringVar(&collectJob, "job", "", "체크포인트 이름 (기본: backfill)")
		c.Flags().StringSliceVar(&collectCodes, "codes", nil, "수집할 코드 (목록 갱신 생략)")
		c.Flags().BoolVar(&collectFresh, "fresh", false, "체크포인트 무시하고 전부 재수집")
	}
}

func runCollect(cmd *cobra.Command, index, stocks bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	from, to, err := collectWindow(cfg, collectFrom, collectTo, time.Now())
	if err != nil {
		return err
	}

	stack, err := newCollectStack(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	jobName := collectJob
	if jobName == "" {
		jobName = "backfill"
	}

	PrintJobHeader(JobMetadata{
		JobType: "Daily Bar Collection",
		Tag:     "Collect",
		Period:  &Period{StartDate: contracts.DateKey(from), EndDate: contracts.DateKey(to)},
		Detail:  fmt.Sprintf("job=%s workers=%d resume=%v", jobName, cfg.Collector.Workers, !collectFresh),
	})

	var failed int
	if index {
		instruments := collector.IndexInstruments(cfg.Collector.IndexCodes)
		if len(collectCodes) > 0 {
			instruments = collector.IndexInstruments(collectCodes)
		}
		summary, err := stack.collector.Run(ctx, collector.Job{
			Name:        jobName + "-index",
			Instruments: instruments,
			From:        from,
			To:          to,
			Resume:      !collectFresh,
		})
		if err != nil {
			return err
		}
		PrintCollectionSummary(summary)
		failed += summary.Failed
	}

	if stocks {
		instruments, err := stockInstruments(ctx, stack, collectCodes)
		if err != nil {
			return err
		}
		summary, err := stack.collector.Run(ctx, collector.Job{
			Name:        jobName + "-stocks",
			Instruments: instruments,
			From:        from,
			To:          to,
			Resume:      !collectFresh,
		})
		if err != nil {
			return err
		}
		PrintCollectionSummary(summary)
		failed += summary.Failed
	}

	fmt.Println()
	if failed > 0 {
		PrintWarning(fmt.Sprintf("%d instruments failed; rerun with the same --job to retry them", failed))
		return nil
	}
	PrintSuccess("Collection completed")
	return nil
}

// stockInstruments uses --codes as given, otherwise refreshes the listing
func stockInstruments(ctx context.Context, stack *collectStack, codes []string) ([]contracts.Instrument, error) {
	if len(codes) == 0 {
		return stack.universe(ctx)
	}
	out := make([]contracts.Instrument, len(codes))
	for i, code := range codes {
		out[i] = contracts.Instrument{Code: code, Kind: contracts.KindStock}
	}
	return out, nil
}

// collectWindow resolves --from/--to against the configured start date and today
func collectWindow(cfg *config.Config, fromFlag, toFlag string, now time.Time) (time.Time, time.Time, error) {
	if fromFlag == "" {
		fromFlag = cfg.Collector.StartDate
	}
	from, err := contracts.ParseDate(fromFlag)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	to := contracts.Day(now)
	if toFlag != "" {
		if to, err = contracts.ParseDate(toFlag); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", contracts.DateKey(to), contracts.DateKey(from))
	}
	return from, to, nil
}
