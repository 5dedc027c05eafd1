package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/wonny/valuepool/internal/contracts"
)

const (
	benchmarkColor = "black"
	profitColor    = "red"
)

// ChartSink renders the benchmark and strategy curves as an HTML line chart
type ChartSink struct {
	Width  string
	Height string
}

func NewChartSink() *ChartSink {
	return &ChartSink{Width: "1200px", Height: "600px"}
}

func (s *ChartSink) Extension() string { return ".html" }

func (s *ChartSink) Render(_ context.Context, r contracts.Report, outputPath string) error {
	if len(r.A.Values) != len(r.Dates) || len(r.B.Values) != len(r.Dates) {
		return fmt.Errorf("series length mismatch: %d dates, %d/%d values",
			len(r.Dates), len(r.A.Values), len(r.B.Values))
	}

	line := s.build(r)

	if err := ensureDir(outputPath); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func (s *ChartSink) build(r contracts.Report) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: r.Title,
			Width:     s.Width,
			Height:    s.Height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    r.Title,
			Subtitle: r.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		// rebalancing dates are unevenly spaced
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "%",
			AxisLabel: &opts.AxisLabel{Formatter: "{value}%"},
		}),
	)

	symbol := charts.WithLineChartOpts(opts.LineChart{Symbol: "circle", SymbolSize: 4})
	line.
		AddSeries(r.A.Label, timeData(r.Dates, r.A.Values), symbol,
			charts.WithLineStyleOpts(opts.LineStyle{Color: benchmarkColor}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: benchmarkColor}),
		).
		AddSeries(r.B.Label, timeData(r.Dates, r.B.Values), symbol,
			charts.WithLineStyleOpts(opts.LineStyle{Color: profitColor}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: profitColor}),
		)
	return line
}

// timeData pairs each value with its date for a time axis
func timeData(dates []time.Time, values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: []interface{}{contracts.DateKey(dates[i]), v}}
	}
	return out
}
