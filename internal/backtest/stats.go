package backtest

import (
	"github.com/montanaflynn/stats"

	"github.com/wonny/valuepool/internal/contracts"
)

// computeStats derives summary figures from the net value curve.
// The seed point carries no period return and is left out of the return statistics.
func computeStats(points []contracts.NetValuePoint) contracts.SeriesStats {
	var out contracts.SeriesStats
	if len(points) == 0 {
		return out
	}

	returns := make([]float64, 0, len(points)-1)
	wins := 0
	for _, p := range points[1:] {
		returns = append(returns, p.PeriodReturn)
		if p.PeriodReturn > 0 {
			wins++
		}
	}

	if len(returns) > 0 {
		if mean, err := stats.Mean(returns); err == nil {
			out.MeanPeriodReturn = mean
		}
		out.WinRate = float64(wins) / float64(len(returns))
	}
	if len(returns) > 1 {
		if sd, err := stats.StandardDeviationSample(returns); err == nil {
			out.StdDevPeriodReturn = sd
		}
	}

	out.MaxDrawdown = maxDrawdown(points)

	lastPoint := points[len(points)-1]
	out.ExcessReturnPct = lastPoint.CumulativeReturnPct - lastPoint.BenchmarkReturnPct
	return out
}

// maxDrawdown returns the largest peak-to-trough fall of the net value as a fraction of the peak
func maxDrawdown(points []contracts.NetValuePoint) float64 {
	peak := points[0].NetValue
	worst := 0.0
	for _, p := range points {
		if p.NetValue > peak {
			peak = p.NetValue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.NetValue) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}
