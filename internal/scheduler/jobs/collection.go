package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/collector"
	"github.com/wonny/valuepool/pkg/logger"
)

// Runner executes one collection run
type Runner interface {
	Run(ctx context.Context, job collector.Job) (*collector.Summary, error)
}

// UniverseFunc resolves the instruments of a run
type UniverseFunc func(ctx context.Context) ([]contracts.Instrument, error)

// CollectionJob re-collects the last LookbackDays of a universe
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type CollectionJob struct {
	name     string
	schedule string
	runner   Runner
	universe UniverseFunc
	lookback int
	now      func() time.Time
	logger   *logger.Logger
}

// NewIndexCollectionJob collects the benchmark and calendar indices
func NewIndexCollectionJob(runner Runner, codes []string, lookbackDays int, log *logger.Logger) *CollectionJob {
	instruments := collector.IndexInstruments(codes)
	return &CollectionJob{
		name:     "index_collection",
		schedule: "0 0 16 * * MON-FRI", // 4 PM on weekdays, after the close
		runner:   runner,
		universe: func(context.Context) ([]contracts.Instrument, error) { return instruments, nil },
		lookback: lookbackDays,
		now:      time.Now,
		logger:   log,
	}
}

// NewStockCollectionJob collects every listed stock
func NewStockCollectionJob(runner Runner, universe UniverseFunc, lookbackDays int, log *logger.Logger) *CollectionJob {
	return &CollectionJob{
		name:     "stock_collection",
		schedule: "0 30 16 * * MON-FRI", // after index_collection
		runner:   runner,
		universe: universe,
		lookback: lookbackDays,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *CollectionJob) Name() string {
	return j.name
}

// Schedule returns the cron schedule (with seconds)
func (j *CollectionJob) Schedule() string {
	return j.schedule
}

// Run collects [today - lookback, today]. Checkpoints are scoped to the day so a retry
// only re-fetches the instruments that failed.
func (j *CollectionJob) Run(ctx context.Context) error {
	instruments, err := j.universe(ctx)
	if err != nil {
		return fmt.Errorf("%s universe: %w", j.name, err)
	}

	to := contracts.Day(j.now())
	from := to.AddDate(0, 0, -j.lookback)

	summary, err := j.runner.Run(ctx, collector.Job{
		Name:        fmt.Sprintf("%s-%s", j.name, contracts.DateKey(to)),
		Instruments: instruments,
		From:        from,
		To:          to,
		Resume:      true,
	})
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"job":     j.name,
		"total":   summary.Total,
		"success": summary.Success,
		"empty":   summary.Empty,
		"failed":  summary.Failed,
		"rows":    summary.Rows,
	}).Info("Scheduled collection finished")

	if summary.Failed > 0 {
		return fmt.Errorf("%s: %d of %d instruments failed", j.name, summary.Failed, summary.Total)
	}
	return nil
}
