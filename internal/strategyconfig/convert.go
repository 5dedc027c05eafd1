package strategyconfig

import (
	"path/filepath"

	"github.com/wonny/valuepool/internal/backtest"
	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/selection"
)

// BacktestConfig maps a validated strategy onto the engine configuration.
// ReportPath is <report.dir>/<strategy_id>-<hash prefix> when formats are set.
func (c *Config) BacktestConfig() (backtest.Config, error) {
	if err := Validate(c); err != nil {
		return backtest.Config{}, err
	}

	start, _ := contracts.ParseDate(c.Period.Start)
	end, _ := contracts.ParseDate(c.Period.End)
	rankBy, _ := contracts.ParseRankField(c.Selection.RankBy)
	direction, _ := contracts.ParseDirection(c.Selection.Direction)
	carry, err := selection.ParseCarryPolicy(c.Selection.CarryPolicy)
	if err != nil {
		return backtest.Config{}, err
	}
	empty, err := backtest.ParseEmptyPeriodPolicy(c.Accounting.EmptyPeriodPolicy)
	if err != nil {
		return backtest.Config{}, err
	}

	out := backtest.Config{
		Selection: selection.Params{
			Market:      c.Selection.Market,
			Start:       start,
			End:         end,
			RankBy:      rankBy,
			Range:       contracts.Range{Lo: c.Selection.Range.Lo, Hi: c.Selection.Range.Hi},
			Direction:   direction,
			PoolSize:    c.Selection.PoolSize,
			Interval:    c.Selection.RebalanceInterval,
			CarryPolicy: carry,
		},
		BenchmarkCode:       c.Accounting.Benchmark,
		EmptyPeriodPolicy:   empty,
		ReferenceTruncation: c.Accounting.ReferenceTruncation,
	}

	if len(c.Report.Formats) > 0 {
		hash, err := Hash(c)
		if err != nil {
			return backtest.Config{}, err
		}
		out.ReportPath = filepath.Join(c.Report.Dir, c.Meta.StrategyID+"-"+hash[:8])
	}
	return out, nil
}
