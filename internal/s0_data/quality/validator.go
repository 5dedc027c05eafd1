package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Coverage keys
const (
	CoveragePrice  = "price"  // a bar exists on the date
	CoverageVolume = "volume" // the bar traded (volume > 0)
	CoverageRank   = "rank"   // the bar carries a positive PE
)

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage  float64 `yaml:"min_price_coverage"`
	MinVolumeCoverage float64 `yaml:"min_volume_coverage"`
	MinRankCoverage   float64 `yaml:"min_rank_coverage"`
}

// DefaultConfig tolerates suspended stocks and loss makers without a PE
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:  0.98,
		MinVolumeCoverage: 0.90,
		MinRankCoverage:   0.60,
	}
}

// Snapshot is the coverage of the stock universe on one date
type Snapshot struct {
	Date         time.Time          `json:"date"`
	TotalStocks  int                `json:"total_stocks"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Failures     []string           `json:"failures,omitempty"`
}

// CoverageSource counts the universe and its bars on a date
type CoverageSource interface {
	CountCoverage(ctx context.Context, date time.Time) (total, priced, traded, ranked int, err error)
}

// QualityGate checks that the stored bars are complete enough to backtest on
type QualityGate struct {
	source CoverageSource
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(source CoverageSource, config Config) *QualityGate {
	return &QualityGate{
		source: source,
		config: config,
	}
}

// Check validates data quality for a given date
// ⭐ SSOT: 수집 데이터 → 백테스트 입력 품질 검증
func (g *QualityGate) Check(ctx context.Context, date time.Time) (*Snapshot, error) {
	total, priced, traded, ranked, err := g.source.CountCoverage(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("count coverage: %w", err)
	}

	snapshot := &Snapshot{
		Date:        date,
		TotalStocks: total,
		Coverage: map[string]float64{
			CoveragePrice:  ratio(priced, total),
			CoverageVolume: ratio(traded, total),
			CoverageRank:   ratio(ranked, total),
		},
	}
	snapshot.QualityScore = calculateScore(snapshot.Coverage)
	snapshot.Failures = g.failures(snapshot.Coverage)
	snapshot.Passed = total > 0 && len(snapshot.Failures) == 0
	return snapshot, nil
}

func (g *QualityGate) failures(coverage map[string]float64) []string {
	thresholds := []struct {
		key string
		min float64
	}{
		{CoveragePrice, g.config.MinPriceCoverage},
		{CoverageVolume, g.config.MinVolumeCoverage},
		{CoverageRank, g.config.MinRankCoverage},
	}

	var out []string
	for _, th := range thresholds {
		if coverage[th.key] < th.min {
			out = append(out, fmt.Sprintf("%s coverage %.1f%% < %.1f%%", th.key, coverage[th.key]*100, th.min*100))
		}
	}
	return out
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// calculateScore calculates overall quality score using weighted average
func calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		CoveragePrice:  0.40,
		CoverageVolume: 0.30,
		CoverageRank:   0.30,
	}

	score := 0.0
	for key, weight := range weights {
		score += coverage[key] * weight
	}
	return score
}

// PostgresSource counts coverage over data.instruments and data.daily_bars
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) CountCoverage(ctx context.Context, date time.Time) (total, priced, traded, ranked int, err error) {
	query := `
		SELECT
			COUNT(DISTINCT i.code),
			COUNT(DISTINCT b.code),
			COUNT(DISTINCT b.code) FILTER (WHERE b.volume > 0),
			COUNT(DISTINCT b.code) FILTER (WHERE b.pe > 0)
		FROM data.instruments i
		LEFT JOIN data.daily_bars b ON i.code = b.code AND b.trade_date = $1
		WHERE i.kind = 'stock' AND i.status = 'active'
	`

	err = s.pool.QueryRow(ctx, query, date).Scan(&total, &priced, &traded, &ranked)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("query coverage: %w", err)
	}
	return total, priced, traded, ranked, nil
}
