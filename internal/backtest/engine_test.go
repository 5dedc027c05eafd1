package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/memstore"
	"github.com/wonny/valuepool/internal/selection"
	"github.com/wonny/valuepool/pkg/logger"
)

type recordingSink struct {
	reports []contracts.Report
	paths   []string
	err     error
}

func (s *recordingSink) Render(_ context.Context, r contracts.Report, path string) error {
	s.reports = append(s.reports, r)
	s.paths = append(s.paths, path)
	return s.err
}

// engineFixture: four trading days, rebalancing on the first and third
func engineFixture() ([]time.Time, *memstore.Store) {
	days := []time.Time{
		time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC),
	}
	closesA := []float64{10, 11, 12, 12}
	closesB := []float64{20, 19, 20, 21}
	closesBM := []float64{100, 104, 110, 111}

	store := memstore.New()
	for i, d := range days {
		store.Put(
			contracts.Bar{Code: "A", TradeDate: d, Close: closesA[i], PE: 2, Volume: 10},
			contracts.Bar{Code: "B", TradeDate: d, Close: closesB[i], PE: 3, Volume: 10},
			contracts.Bar{Code: "C", TradeDate: d, Close: 5, PE: 12, Volume: 10},
			contracts.Bar{Code: "BM", TradeDate: d, Close: closesBM[i], Volume: 1000},
		)
	}
	return days, store
}

func engineConfig(days []time.Time) Config {
	return Config{
		Selection: selection.Params{
			Start:    days[0],
			End:      days[len(days)-1],
			RankBy:   contracts.FieldPE,
			Range:    contracts.Range{Lo: 0, Hi: 10},
			PoolSize: 2,
			Interval: 2,
		},
		BenchmarkCode: "BM",
		ReportPath:    "reports/run",
	}
}

func TestEngine_Run(t *testing.T) {
	days, store := engineFixture()
	sink := &recordingSink{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	engine := NewEngine(memstore.NewStaticCalendar(days...), store, sink, metrics, logger.NewNop())
	result, err := engine.Run(context.Background(), engineConfig(days))
	require.NoError(t, err)

	assert.Equal(t, []time.Time{days[0], days[2]}, result.Pools.Dates())
	assert.Equal(t, []string{"A", "B"}, result.Pools.Get(days[0]))

	require.Len(t, result.Series.Points, 2)
	last := result.Series.Points[1]
	assert.InDelta(t, 0.1, last.PeriodReturn, 1e-12)
	assert.InDelta(t, 10.0, last.CumulativeReturnPct, 1e-9)
	assert.InDelta(t, 10.0, last.BenchmarkReturnPct, 1e-9)
	assert.Equal(t, EmptyPeriodFail, result.Config.EmptyPeriodPolicy, "default filled in")

	require.Len(t, sink.reports, 1)
	report := sink.reports[0]
	assert.Equal(t, "reports/run", sink.paths[0])
	assert.Equal(t, ReportTitle, report.Title)
	assert.Equal(t, "0<pe<10, pool 2, annualized 10.00%", report.Subtitle)
	assert.Equal(t, "benchmark", report.A.Label)
	assert.Equal(t, "profit", report.B.Label)
	assert.Equal(t, []time.Time{days[0], days[2]}, report.Dates)
	assert.Len(t, report.B.Values, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")))
}

func TestEngine_AnnualizesOverRunPeriod(t *testing.T) {
	days, store := engineFixture()

	cfg := engineConfig(days)
	cfg.Selection.End = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	cfg.ReportPath = ""

	result, err := NewEngine(memstore.NewStaticCalendar(days...), store, nil, nil, logger.NewNop()).Run(context.Background(), cfg)
	require.NoError(t, err)

	// last rebalancing stays in 2024 but the run period spans 2024..2025
	assert.Equal(t, days[2], result.Series.End)
	assert.InDelta(t, 1.1, result.Series.FinalNetValue(), 1e-9)
	assert.InDelta(t, math.Sqrt(1.1)-1, result.Series.AnnualizedReturn, 1e-9)
}

func TestEngine_SkipsRenderingWithoutPath(t *testing.T) {
	days, store := engineFixture()
	sink := &recordingSink{}

	cfg := engineConfig(days)
	cfg.ReportPath = ""

	_, err := NewEngine(memstore.NewStaticCalendar(days...), store, sink, nil, logger.NewNop()).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, sink.reports)
}

func TestEngine_Errors(t *testing.T) {
	days, store := engineFixture()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		sink    *recordingSink
		wantErr error
	}{
		{"missing benchmark code", func(c *Config) { c.BenchmarkCode = "" }, nil, contracts.ErrInvalidParams},
		{"unknown benchmark", func(c *Config) { c.BenchmarkCode = "NOPE" }, nil, contracts.ErrMissingBenchmarkRecord},
		{"bad policy", func(c *Config) { c.EmptyPeriodPolicy = "skip" }, nil, contracts.ErrInvalidParams},
		{"period before data", func(c *Config) {
			c.Selection.Start = days[0].AddDate(-1, 0, 0)
			c.Selection.End = days[0].AddDate(0, 0, -1)
		}, nil, contracts.ErrEmptyCalendar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := NewMetrics(prometheus.NewRegistry())
			engine := NewEngine(memstore.NewStaticCalendar(days...), store, nil, metrics, logger.NewNop())

			cfg := engineConfig(days)
			tt.mutate(&cfg)

			_, err := engine.Run(context.Background(), cfg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("error")))
		})
	}
}

func TestEngine_RenderError(t *testing.T) {
	days, store := engineFixture()
	sink := &recordingSink{err: errors.New("disk full")}

	_, err := NewEngine(memstore.NewStaticCalendar(days...), store, sink, nil, logger.NewNop()).Run(context.Background(), engineConfig(days))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
