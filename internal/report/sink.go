package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/valuepool/internal/contracts"
)

// Sink is a ReportSink that owns a file extension
type Sink interface {
	contracts.ReportSink
	Extension() string
}

// MultiSink renders one report through several sinks, each at base path + its extension
// ⭐ SSOT: 리포트 출력 경로 규칙
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Render(ctx context.Context, r contracts.Report, basePath string) error {
	for _, s := range m.sinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := basePath + s.Extension()
		if err := s.Render(ctx, r, path); err != nil {
			return fmt.Errorf("render %s: %w", path, err)
		}
	}
	return nil
}

// ForFormats builds a MultiSink from format names (html, csv, parquet), in order
func ForFormats(formats []string) (*MultiSink, error) {
	sinks := make([]Sink, 0, len(formats))
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "html":
			sinks = append(sinks, NewChartSink())
		case "csv":
			sinks = append(sinks, CSVSink{})
		case "parquet":
			sinks = append(sinks, ParquetSink{})
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}
	return NewMultiSink(sinks...), nil
}

// Paths lists the artifacts Render produces for basePath
func (m *MultiSink) Paths(basePath string) []string {
	out := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		out[i] = basePath + s.Extension()
	}
	return out
}

// pointRecord is the tabular row shared by the CSV and Parquet exports
type pointRecord struct {
	Date                string  `csv:"date" parquet:"date"`
	NetValue            float64 `csv:"net_value" parquet:"net_value"`
	PeriodReturn        float64 `csv:"period_return" parquet:"period_return"`
	CumulativeReturnPct float64 `csv:"cumulative_return_pct" parquet:"cumulative_return_pct"`
	BenchmarkReturnPct  float64 `csv:"benchmark_return_pct" parquet:"benchmark_return_pct"`
	Participants        int64   `csv:"participants" parquet:"participants"`
}

// records flattens the report. Reports without points fall back to the two series.
func records(r contracts.Report) []pointRecord {
	if len(r.Points) > 0 {
		out := make([]pointRecord, len(r.Points))
		for i, p := range r.Points {
			out[i] = pointRecord{
				Date:                contracts.DateKey(p.Date),
				NetValue:            p.NetValue,
				PeriodReturn:        p.PeriodReturn,
				CumulativeReturnPct: p.CumulativeReturnPct,
				BenchmarkReturnPct:  p.BenchmarkReturnPct,
				Participants:        int64(p.Participants),
			}
		}
		return out
	}

	out := make([]pointRecord, len(r.Dates))
	for i, d := range r.Dates {
		out[i] = pointRecord{Date: contracts.DateKey(d)}
		if i < len(r.A.Values) {
			out[i].BenchmarkReturnPct = r.A.Values[i]
		}
		if i < len(r.B.Values) {
			out[i].CumulativeReturnPct = r.B.Values[i]
			out[i].NetValue = 1 + r.B.Values[i]/100
		}
	}
	return out
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
