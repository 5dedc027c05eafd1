package strategyconfig

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var strategyIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

var reportFormats = map[string]bool{"html": true, "csv": true, "parquet": true}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if !strategyIDPattern.MatchString(cfg.Meta.StrategyID) {
		return ValidationError{"meta.strategy_id", "must match [a-z0-9_]+"}
	}

	// === Period ===
	start, err := time.Parse(contracts.DateLayout, cfg.Period.Start)
	if err != nil {
		return ValidationError{"period.start", "must be YYYY-MM-DD"}
	}
	end, err := time.Parse(contracts.DateLayout, cfg.Period.End)
	if err != nil {
		return ValidationError{"period.end", "must be YYYY-MM-DD"}
	}
	if end.Before(start) {
		return ValidationError{"period", "start must not be after end"}
	}

	// === Selection ===
	s := cfg.Selection
	if _, err := contracts.ParseRankField(s.RankBy); err != nil {
		return ValidationError{"selection.rank_by", "must be one of pe, pb, close"}
	}
	if s.Range.Lo >= s.Range.Hi {
		return ValidationError{"selection.range", fmt.Sprintf("lo=%g must be < hi=%g", s.Range.Lo, s.Range.Hi)}
	}
	if _, err := contracts.ParseDirection(s.Direction); err != nil {
		return ValidationError{"selection.direction", "must be asc or desc"}
	}
	if s.PoolSize < 1 {
		return ValidationError{"selection.pool_size", "must be >= 1"}
	}
	if s.RebalanceInterval < 1 {
		return ValidationError{"selection.rebalance_interval", "must be >= 1"}
	}
	switch strings.ToLower(s.CarryPolicy) {
	case "", "suspended", "active":
	default:
		return ValidationError{"selection.carry_policy", "must be suspended or active"}
	}

	// === Accounting ===
	if cfg.Accounting.Benchmark == "" {
		return ValidationError{"accounting.benchmark", "required"}
	}
	switch strings.ToLower(cfg.Accounting.EmptyPeriodPolicy) {
	case "", "fail", "carry":
	default:
		return ValidationError{"accounting.empty_period_policy", "must be fail or carry"}
	}

	// === Report ===
	for i, f := range cfg.Report.Formats {
		if !reportFormats[strings.ToLower(f)] {
			return ValidationError{
				Field:   fmt.Sprintf("report.formats[%d]", i),
				Message: fmt.Sprintf("unknown format %q (html, csv, parquet)", f),
			}
		}
	}
	if len(cfg.Report.Formats) > 0 && cfg.Report.Dir == "" {
		return ValidationError{"report.dir", "required when formats are set"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning
	s := cfg.Selection

	// PE/PB 미상 종목은 0으로 저장됨
	if s.RankBy != "close" && s.Range.Lo < 0 && s.Range.Hi > 0 {
		warnings = append(warnings, Warning{
			Code:    "INCLUDES_UNKNOWN_METRIC",
			Message: fmt.Sprintf("range %s contains 0: instruments without earnings rank in", contracts.Range{Lo: s.Range.Lo, Hi: s.Range.Hi}),
		})
	}

	if s.RebalanceInterval < 5 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_INTERVAL",
			Message: "rebalance interval < 5 trading days: turnover cost is not modelled",
		})
	}

	if cfg.Accounting.ReferenceTruncation {
		warnings = append(warnings, Warning{
			Code:    "TRUNCATED_SERIES",
			Message: "last rebalancing period is dropped from the series",
		})
	}

	return warnings
}
