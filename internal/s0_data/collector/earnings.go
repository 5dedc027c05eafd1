package collector

import (
	"math"

	"github.com/wonny/valuepool/internal/contracts"
)

// ApplyEarnings sets PE = close / EPS of the previous fiscal year, the latest figure
// published before the bar's year. Unknown or non-positive EPS leaves PE at 0.
func ApplyEarnings(bars []contracts.Bar, eps map[int]float64) {
	for i := range bars {
		e, ok := eps[bars[i].TradeDate.Year()-1]
		if !ok || e <= 0 || bars[i].Close <= 0 {
			bars[i].PE = 0
			continue
		}
		bars[i].PE = math.Round(bars[i].Close/e*100) / 100
	}
}
