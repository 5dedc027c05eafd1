package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
)

func sampleReport() contracts.Report {
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	points := []contracts.NetValuePoint{
		{Date: d0, NetValue: 1, Participants: 2},
		{Date: d1, NetValue: 1.05, PeriodReturn: 0.05, CumulativeReturnPct: 5, BenchmarkReturnPct: 2.5, Participants: 2},
	}
	return contracts.Report{
		Title:    "Historical Yield",
		Subtitle: "0<pe<10, pool 2, annualized 5.00%",
		Dates:    []time.Time{d0, d1},
		A:        contracts.Series{Label: "benchmark", Values: []float64{0, 2.5}},
		B:        contracts.Series{Label: "profit", Values: []float64{0, 5}},
		Points:   points,
	}
}

func TestChartSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.html")

	require.NoError(t, NewChartSink().Render(context.Background(), sampleReport(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)
	assert.Contains(t, html, "Historical Yield")
	assert.Contains(t, html, "benchmark")
	assert.Contains(t, html, "profit")
	assert.Contains(t, html, "2024-02-01")
}

func TestChartSink_TimeAxis(t *testing.T) {
	r := sampleReport()
	line := NewChartSink().build(r)

	require.NotEmpty(t, line.XAxisList)
	assert.Equal(t, "time", line.XAxisList[0].Type)

	data := timeData(r.Dates, r.B.Values)
	require.Len(t, data, 2)
	assert.Equal(t, []interface{}{"2024-01-02", 0.0}, data[0].Value)
	assert.Equal(t, []interface{}{"2024-02-01", 5.0}, data[1].Value)
}

func TestChartSink_LengthMismatch(t *testing.T) {
	r := sampleReport()
	r.B.Values = r.B.Values[:1]

	err := NewChartSink().Render(context.Background(), r, filepath.Join(t.TempDir(), "x.html"))
	assert.Error(t, err)
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	require.NoError(t, CSVSink{}.Render(context.Background(), sampleReport(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []*pointRecord
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-02-01", rows[1].Date)
	assert.Equal(t, 1.05, rows[1].NetValue)
	assert.Equal(t, 2.5, rows[1].BenchmarkReturnPct)
	assert.Equal(t, int64(2), rows[1].Participants)
}

func TestParquetSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.parquet")
	require.NoError(t, ParquetSink{}.Render(context.Background(), sampleReport(), path))

	rows, err := parquet.ReadFile[pointRecord](path)
	require.NoError(t, err)
	assert.Equal(t, records(sampleReport()), rows)
}

func TestMultiSink(t *testing.T) {
	base := filepath.Join(t.TempDir(), "reports", "run")
	sink := NewMultiSink(NewChartSink(), CSVSink{}, ParquetSink{})

	require.NoError(t, sink.Render(context.Background(), sampleReport(), base))

	paths := sink.Paths(base)
	assert.Equal(t, []string{base + ".html", base + ".csv", base + ".parquet"}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestForFormats(t *testing.T) {
	sink, err := ForFormats([]string{"csv", " HTML "})
	require.NoError(t, err)
	assert.Equal(t, []string{"run.csv", "run.html"}, sink.Paths("run"))

	_, err = ForFormats([]string{"pdf"})
	assert.Error(t, err)
}

func TestMultiSink_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMultiSink(CSVSink{}).Render(ctx, sampleReport(), filepath.Join(t.TempDir(), "run"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecords_FromSeries(t *testing.T) {
	r := sampleReport()
	r.Points = nil

	got := records(r)
	require.Len(t, got, 2)
	assert.Equal(t, 5.0, got[1].CumulativeReturnPct)
	assert.InDelta(t, 1.05, got[1].NetValue, 1e-12)
	assert.Equal(t, 2.5, got[1].BenchmarkReturnPct)
}
