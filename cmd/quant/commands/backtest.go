package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wonny/valuepool/internal/backtest"
	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/report"
	"github.com/wonny/valuepool/internal/s0_data"
	"github.com/wonny/valuepool/internal/s0_data/memstore"
	"github.com/wonny/valuepool/internal/strategyconfig"
	"github.com/wonny/valuepool/pkg/config"
	"github.com/wonny/valuepool/pkg/logger"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "종목풀 백테스트",
	Long: `랭킹 지표 구간으로 종목풀을 선정하고 리밸런싱 수익률을 계산합니다.

Subcommands:
  run       - 백테스트 실행
  validate  - 전략 파일 검증

Example:
  go run ./cmd/quant backtest run --strategy strategies/low_pe.yaml
  go run ./cmd/quant backtest run --start 2015-01-01 --end 2019-12-31 --lo 0 --hi 10
  go run ./cmd/quant backtest run --csv bars.csv --formats html,csv,parquet`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `전략 파일(또는 기본 전략)에 플래그를 덮어써서 백테스트를 실행합니다.

Data:
  기본은 PostgreSQL 일봉 (Redis 캐시 사용 가능)
  --csv 를 주면 DB 없이 CSV 일봉 파일로 실행

Output:
  --formats 에 따라 <out>/<strategy_id>-<hash>.{html,csv,parquet}
  그리고 재현용 스냅샷 .json 을 함께 기록`,
		RunE: runBacktest,
	}

	backtestValidateCmd = &cobra.Command{
		Use:   "validate [strategy.yaml]",
		Short: "전략 파일 검증",
		Args:  cobra.ExactArgs(1),
		RunE:  validateStrategy,
	}

	// Flags
	backtestStrategy    string
	backtestCSV         string
	backtestOut         string
	backtestFormats     []string
	backtestStart       string
	backtestEnd         string
	backtestMarket      string
	backtestRankBy      string
	backtestLo          float64
	backtestHi          float64
	backtestDirection   string
	backtestPoolSize    int
	backtestInterval    int
	backtestCarry       string
	backtestBenchmark   string
	backtestEmptyPeriod string
	backtestTruncate    bool
	backtestShowPools   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestValidateCmd)

	f := backtestRunCmd.Flags()
	f.StringVar(&backtestStrategy, "strategy", "", "전략 YAML 파일")
	f.StringVar(&backtestCSV, "csv", "", "일봉 CSV 파일 (DB 대신 사용)")
	f.StringVar(&backtestOut, "out", "", "리포트 디렉터리 (기본: BACKTEST_REPORT_DIR)")
	f.StringSliceVar(&backtestFormats, "formats", nil, "리포트 형식 (html,csv,parquet)")
	f.StringVar(&backtestStart, "start", "", "시작 날짜 (YYYY-MM-DD)")
	f.StringVar(&backtestEnd, "end", "", "종료 날짜 (YYYY-MM-DD)")
	f.StringVar(&backtestMarket, "market", "", "거래일 캘린더 지수")
	f.StringVar(&backtestRankBy, "rank-by", "", "랭킹 지표 (pe|pb|close)")
	f.Float64Var(&backtestLo, "lo", 0, "랭킹 구간 하한 (개구간)")
	f.Float64Var(&backtestHi, "hi", 0, "랭킹 구간 상한 (개구간)")
	f.StringVar(&backtestDirection, "direction", "", "정렬 방향 (asc|desc)")
	f.IntVar(&backtestPoolSize, "pool-size", 0, "종목풀 크기")
	f.IntVar(&backtestInterval, "interval", 0, "리밸런싱 주기 (거래일)")
	f.StringVar(&backtestCarry, "carry", "", "이월 정책 (suspended|active)")
	f.StringVar(&backtestBenchmark, "benchmark", "", "벤치마크 지수 코드")
	f.StringVar(&backtestEmptyPeriod, "empty-period", "", "빈 구간 정책 (fail|carry)")
	f.BoolVar(&backtestTruncate, "truncate", false, "마지막 리밸런싱 구간 제외")
	f.BoolVar(&backtestShowPools, "show-pools", false, "리밸런싱별 보유 종목 출력")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	strategy, yamlData, err := loadStrategy(cfg)
	if err != nil {
		return err
	}
	if applyBacktestFlags(cmd.Flags(), strategy) {
		yamlData = nil // snapshot re-marshals the effective strategy
	}
	if err := strategyconfig.Validate(strategy); err != nil {
		return err
	}
	for _, w := range strategyconfig.Warn(strategy) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	btConfig, err := strategy.BacktestConfig()
	if err != nil {
		return err
	}

	var sink contracts.ReportSink
	var multi *report.MultiSink
	if btConfig.ReportPath != "" {
		if multi, err = report.ForFormats(strategy.Report.Formats); err != nil {
			return err
		}
		sink = multi
	}

	dataSource := "postgres"
	var engine *backtest.Engine
	if backtestCSV != "" {
		dataSource = "csv:" + backtestCSV
		if engine, err = newCSVEngine(backtestCSV, cfg, sink, log); err != nil {
			return err
		}
	} else {
		db, err := openDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		rc := openRedis(ctx, cfg, log)
		defer rc.Close()
		engine = newDatabaseEngine(db, rc, cfg, sink, backtest.NewMetrics(prometheus.NewRegistry()), log)
	}

	PrintJobHeader(JobMetadata{
		JobType: "Backtest: " + strategy.Meta.StrategyID,
		Tag:     "Backtest",
		Period:  &Period{StartDate: strategy.Period.Start, EndDate: strategy.Period.End},
		Detail: fmt.Sprintf("%s in (%g, %g) %s, pool %d every %d days, benchmark %s",
			strategy.Selection.RankBy, strategy.Selection.Range.Lo, strategy.Selection.Range.Hi,
			strategy.Selection.Direction, strategy.Selection.PoolSize,
			strategy.Selection.RebalanceInterval, strategy.Accounting.Benchmark),
	})

	result, err := engine.Run(ctx, btConfig)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	fmt.Println()
	PrintSeries(result.Series)
	if backtestShowPools {
		fmt.Println()
		PrintPools(result.Pools)
	}
	PrintSeriesSummary(result.Series, result.Pools.Len())

	if multi != nil {
		snapshotPath := btConfig.ReportPath + ".json"
		if err := writeSnapshot(snapshotPath, strategy, yamlData, dataSource, result); err != nil {
			return err
		}
		fmt.Println()
		for _, p := range append(multi.Paths(btConfig.ReportPath), snapshotPath) {
			PrintSuccess("Wrote " + p)
		}
	}
	return nil
}

// loadStrategy reads --strategy over the environment defaults, or returns those defaults
func loadStrategy(cfg *config.Config) (*strategyconfig.Config, []byte, error) {
	if backtestStrategy != "" {
		strategy, data, err := strategyconfig.LoadFrom(backtestStrategy, cfg.Backtest)
		if err != nil {
			return nil, nil, fmt.Errorf("load strategy %s: %w", backtestStrategy, err)
		}
		return strategy, data, nil
	}

	return strategyconfig.DefaultFrom(cfg.Backtest), nil, nil
}

// applyBacktestFlags overlays explicitly set flags and reports whether any was set
func applyBacktestFlags(flags *pflag.FlagSet, s *strategyconfig.Config) bool {
	changed := false
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
			changed = true
		}
	}

	set("start", func() { s.Period.Start = backtestStart })
	set("end", func() { s.Period.End = backtestEnd })
	set("market", func() { s.Selection.Market = backtestMarket })
	set("rank-by", func() { s.Selection.RankBy = backtestRankBy })
	set("lo", func() { s.Selection.Range.Lo = backtestLo })
	set("hi", func() { s.Selection.Range.Hi = backtestHi })
	set("direction", func() { s.Selection.Direction = backtestDirection })
	set("pool-size", func() { s.Selection.PoolSize = backtestPoolSize })
	set("interval", func() { s.Selection.RebalanceInterval = backtestInterval })
	set("carry", func() { s.Selection.CarryPolicy = backtestCarry })
	set("benchmark", func() { s.Accounting.Benchmark = backtestBenchmark })
	set("empty-period", func() { s.Accounting.EmptyPeriodPolicy = backtestEmptyPeriod })
	set("truncate", func() { s.Accounting.ReferenceTruncation = backtestTruncate })
	set("out", func() { s.Report.Dir = backtestOut })
	set("formats", func() { s.Report.Formats = backtestFormats })
	return changed
}

// newCSVEngine runs fully in memory: bars from the file, calendar from the index rows in it
func newCSVEngine(path string, cfg *config.Config, sink contracts.ReportSink, log *logger.Logger) (*backtest.Engine, error) {
	store, err := memstore.LoadFile(path)
	if err != nil {
		return nil, err
	}
	calendar := s0_data.NewIndexCalendar(store, cfg.Backtest.CalendarIndex)
	return backtest.NewEngine(calendar, store, sink, nil, log), nil
}

type snapshotFile struct {
	*strategyconfig.RunSnapshot
	Pools  []contracts.PoolEntry     `json:"pools"`
	Series *contracts.NetValueSeries `json:"series"`
}

func writeSnapshot(path string, s *strategyconfig.Config, yamlData []byte, dataSource string, result *backtest.Result) error {
	snap, err := strategyconfig.NewRunSnapshot(s, yamlData, dataSource)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	data, err := json.MarshalIndent(snapshotFile{
		RunSnapshot: snap,
		Pools:       result.Pools.Entries(),
		Series:      result.Series,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func validateStrategy(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRuntime()
	if err != nil {
		return err
	}

	strategy, _, err := strategyconfig.LoadFrom(args[0], cfg.Backtest)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s is valid", args[0]))
	PrintKeyValue("Strategy", strategy.Meta.StrategyID, 10)
	PrintKeyValue("Hash", hash[:12], 10)
	PrintKeyValue("Formats", strings.Join(strategy.Report.Formats, ","), 10)
	for _, w := range strategyconfig.Warn(strategy) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}
