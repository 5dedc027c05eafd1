package contracts

import (
	"math"
	"time"
)

// NetValuePoint is one rebalancing date of the backtest curve
type NetValuePoint struct {
	Date                time.Time `json:"date"`
	NetValue            float64   `json:"net_value"`
	PeriodReturn        float64   `json:"period_return"`
	CumulativeReturnPct float64   `json:"cumulative_return_pct"`
	BenchmarkReturnPct  float64   `json:"benchmark_return_pct"`
	Participants        int       `json:"participants"`
}

// SeriesStats summarises a net value curve
type SeriesStats struct {
	MeanPeriodReturn   float64 `json:"mean_period_return"`
	StdDevPeriodReturn float64 `json:"stddev_period_return"`
	MaxDrawdown        float64 `json:"max_drawdown"` // fraction of peak, >= 0
	WinRate            float64 `json:"win_rate"`
	ExcessReturnPct    float64 `json:"excess_return_pct"`
}

// NetValueSeries is the ordered curve plus derived figures
// ⭐ SSOT: 백테스트 결과 시계열
type NetValueSeries struct {
	Points           []NetValuePoint `json:"points"`
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
	AnnualizedReturn float64         `json:"annualized_return"`
	Stats            SeriesStats     `json:"stats"`
}

// FinalNetValue returns the last net value, 1.0 for an empty series
func (s *NetValueSeries) FinalNetValue() float64 {
	if len(s.Points) == 0 {
		return 1.0
	}
	return s.Points[len(s.Points)-1].NetValue
}

// YearSpan counts calendar years inclusively: 2015-06 .. 2017-01 spans 3 years
func YearSpan(start, end time.Time) int {
	span := end.Year() - start.Year() + 1
	if span < 1 {
		return 1
	}
	return span
}

// Annualize converts a final net value into a yearly rate over years
func Annualize(netValue float64, years int) float64 {
	if years < 1 || netValue <= 0 {
		return 0
	}
	return math.Pow(netValue, 1/float64(years)) - 1
}

// Dates returns the date axis
func (s *NetValueSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// CumulativePct returns the strategy curve in percent
func (s *NetValueSeries) CumulativePct() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.CumulativeReturnPct
	}
	return out
}

// BenchmarkPct returns the benchmark curve in percent
func (s *NetValueSeries) BenchmarkPct() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.BenchmarkReturnPct
	}
	return out
}
