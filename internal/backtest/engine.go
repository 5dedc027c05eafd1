package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/selection"
	"github.com/wonny/valuepool/pkg/logger"
)

// ReportTitle is the chart title of every backtest report
const ReportTitle = "Historical Yield"

// Engine runs backtesting simulations
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	selector   *selection.Selector
	accountant *Accountant
	sink       contracts.ReportSink
	metrics    *Metrics
	logger     *logger.Logger
}

// Config holds backtest configuration
type Config struct {
	Selection           selection.Params
	BenchmarkCode       string
	EmptyPeriodPolicy   EmptyPeriodPolicy
	ReferenceTruncation bool

	// ReportPath is the artifact path without extension; empty skips rendering
	ReportPath string
}

// Validate checks the configuration and fills defaults
func (c *Config) Validate() error {
	if err := c.Selection.Validate(); err != nil {
		return err
	}
	if c.BenchmarkCode == "" {
		return fmt.Errorf("%w: benchmark code is required", contracts.ErrInvalidParams)
	}
	policy, err := ParseEmptyPeriodPolicy(string(c.EmptyPeriodPolicy))
	if err != nil {
		return err
	}
	c.EmptyPeriodPolicy = policy
	return nil
}

// Result holds backtest results
type Result struct {
	Config   Config                    `json:"-"`
	Pools    *contracts.Pools          `json:"-"`
	Series   *contracts.NetValueSeries `json:"series"`
	Duration time.Duration             `json:"duration"`
}

// Metrics tracks backtest runs
type Metrics struct {
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valuepool",
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by outcome.",
		}, []string{"status"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "valuepool",
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one backtest run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Duration)
	}
	return m
}

// NewEngine creates a new backtest engine. sink and metrics may be nil.
func NewEngine(
	calendar contracts.Calendar,
	prices contracts.PriceLookup,
	sink contracts.ReportSink,
	metrics *Metrics,
	log *logger.Logger,
) *Engine {
	return &Engine{
		selector:   selection.NewSelector(calendar, prices, log),
		accountant: NewAccountant(prices, log),
		sink:       sink,
		metrics:    metrics,
		logger:     log.WithComponent("backtest"),
	}
}

// Run selects the pools, computes the net value series and renders the report
func (e *Engine) Run(ctx context.Context, config Config) (*Result, error) {
	startTime := time.Now()

	result, err := e.run(ctx, config)
	if e.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.Runs.WithLabelValues(status).Inc()
		e.metrics.Duration.Observe(time.Since(startTime).Seconds())
	}
	return result, err
}

func (e *Engine) run(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := config.Selection

	e.logger.WithFields(map[string]interface{}{
		"start_date": contracts.DateKey(p.Start),
		"end_date":   contracts.DateKey(p.End),
		"rank_by":    string(p.RankBy),
		"range":      p.Range.String(),
		"pool_size":  p.PoolSize,
		"interval":   p.Interval,
		"benchmark":  config.BenchmarkCode,
	}).Info("Starting backtest")

	startTime := time.Now()

	pools, err := e.selector.SelectPools(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("select pools: %w", err)
	}

	series, err := e.accountant.ComputeReturns(ctx, pools, config.BenchmarkCode, Options{
		EmptyPeriodPolicy:   config.EmptyPeriodPolicy,
		ReferenceTruncation: config.ReferenceTruncation,
		PeriodStart:         p.Start,
		PeriodEnd:           p.End,
	})
	if err != nil {
		return nil, fmt.Errorf("compute returns: %w", err)
	}

	result := &Result{
		Config:   config,
		Pools:    pools,
		Series:   series,
		Duration: time.Since(startTime),
	}

	if e.sink != nil && config.ReportPath != "" {
		if err := e.sink.Render(ctx, BuildReport(config, series), config.ReportPath); err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"duration":     result.Duration.Seconds(),
		"rebalances":   pools.Len(),
		"net_value":    series.FinalNetValue(),
		"annualized":   fmt.Sprintf("%.2f%%", series.AnnualizedReturn*100),
		"max_drawdown": fmt.Sprintf("%.2f%%", series.Stats.MaxDrawdown*100),
		"excess":       fmt.Sprintf("%.2f%%", series.Stats.ExcessReturnPct),
	}).Info("Backtest completed")

	return result, nil
}

// BuildReport lays the benchmark and strategy curves over the rebalancing dates
func BuildReport(config Config, series *contracts.NetValueSeries) contracts.Report {
	p := config.Selection
	return contracts.Report{
		Title: ReportTitle,
		Subtitle: fmt.Sprintf("%g<%s<%g, pool %d, annualized %.2f%%",
			p.Range.Lo, p.RankBy, p.Range.Hi, p.PoolSize, series.AnnualizedReturn*100),
		Dates:  series.Dates(),
		A:      contracts.Series{Label: "benchmark", Values: series.BenchmarkPct()},
		B:      contracts.Series{Label: "profit", Values: series.CumulativePct()},
		Points: series.Points,
	}
}
