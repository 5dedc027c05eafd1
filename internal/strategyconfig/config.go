package strategyconfig

import (
	"time"

	"github.com/wonny/valuepool/pkg/config"
)

// Config는 백테스트 전략의 전체 설정
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Period     Period     `yaml:"period" json:"period"`
	Selection  Selection  `yaml:"selection" json:"selection"`
	Accounting Accounting `yaml:"accounting" json:"accounting"`
	Report     Report     `yaml:"report" json:"report"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Period 백테스트 기간 (YYYY-MM-DD, 양 끝 포함)
type Period struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Selection 종목 풀 선정
type Selection struct {
	Market            string    `yaml:"market" json:"market"` // 거래일 캘린더 지수
	RankBy            string    `yaml:"rank_by" json:"rank_by"`
	Range             RangeSpec `yaml:"range" json:"range"`
	Direction         string    `yaml:"direction" json:"direction"`
	PoolSize          int       `yaml:"pool_size" json:"pool_size"`
	RebalanceInterval int       `yaml:"rebalance_interval" json:"rebalance_interval"` // 거래일 기준
	CarryPolicy       string    `yaml:"carry_policy" json:"carry_policy"`
}

// RangeSpec 개구간 (lo, hi)
type RangeSpec struct {
	Lo float64 `yaml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" json:"hi"`
}

// Accounting 수익률 계산
type Accounting struct {
	Benchmark           string `yaml:"benchmark" json:"benchmark"`
	EmptyPeriodPolicy   string `yaml:"empty_period_policy" json:"empty_period_policy"`
	ReferenceTruncation bool   `yaml:"reference_truncation" json:"reference_truncation"`
}

// Report 결과물 출력
type Report struct {
	Dir     string   `yaml:"dir" json:"dir"`
	Formats []string `yaml:"formats" json:"formats"` // html, csv, parquet
}

// Default returns the settings used when no strategy file is given
func Default() *Config {
	return &Config{
		Meta: Meta{StrategyID: "low_pe_pool", Version: "1"},
		Period: Period{
			Start: "2015-01-01",
			End:   "2019-12-31",
		},
		Selection: Selection{
			Market:            "KOSPI",
			RankBy:            "pe",
			Range:             RangeSpec{Lo: 0, Hi: 10},
			Direction:         "asc",
			PoolSize:          20,
			RebalanceInterval: 20,
			CarryPolicy:       "suspended",
		},
		Accounting: Accounting{
			Benchmark:         "KPI200",
			EmptyPeriodPolicy: "fail",
		},
		Report: Report{
			Dir:     "reports",
			Formats: []string{"html"},
		},
	}
}

// DefaultFrom seeds Default() with the environment's backtest settings.
// Empty settings keep the built-in values.
// ⭐ SSOT: 환경 기본값(캘린더 지수, 벤치마크, 리포트 경로)은 여기서만 반영
func DefaultFrom(env config.BacktestConfig) *Config {
	c := Default()
	if env.CalendarIndex != "" {
		c.Selection.Market = env.CalendarIndex
	}
	if env.BenchmarkCode != "" {
		c.Accounting.Benchmark = env.BenchmarkCode
	}
	if env.ReportDir != "" {
		c.Report.Dir = env.ReportDir
	}
	return c
}

// RunSnapshot 백테스트 실행 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	DataSource string    `json:"data_source"`
	CreatedAt  time.Time `json:"created_at"`
}
