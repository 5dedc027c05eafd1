package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data"
	"github.com/wonny/valuepool/pkg/logger"
)

// PriceSource is the market data provider
type PriceSource interface {
	FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
	FetchAnnualEPS(ctx context.Context, code string) (map[int]float64, error)
}

// BarWriter is the store side the collector writes to
type BarWriter interface {
	SaveBars(ctx context.Context, bars []contracts.Bar) error
	History(ctx context.Context, code string, from, to time.Time) ([]contracts.Bar, error)
}

// Collector fetches daily bars with a bounded worker pool, fills non-trading days
// and checkpoints every instrument in a StatusStore.
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source  PriceSource
	bars    BarWriter
	status  StatusStore
	metrics *Metrics
	logger  *logger.Logger
	cfg     Config
}

// Config holds collector tuning
type Config struct {
	Workers      int
	SkipPrefixes []string      // codes starting with one of these are never fetched
	Pause        time.Duration // politeness pause after each instrument, jittered up to 2x
}

// Job is one collection run. Name scopes the checkpoints: resuming a job with the
// same name skips instruments already stored as success or empty.
type Job struct {
	Name        string
	Instruments []contracts.Instrument
	From, To    time.Time
	Resume      bool
}

// FetchResult is the outcome of one instrument
type FetchResult struct {
	Code    string
	State   contracts.FetchState
	Rows    int
	Skipped bool
	Error   error
}

// Summary aggregates a run
type Summary struct {
	Job      string
	Total    int
	Success  int
	Empty    int
	Failed   int
	Skipped  int
	Rows     int
	Duration time.Duration
	Results  []FetchResult
}

func New(source PriceSource, bars BarWriter, status StatusStore, metrics *Metrics, log *logger.Logger, cfg Config) *Collector {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Collector{
		source:  source,
		bars:    bars,
		status:  status,
		metrics: metrics,
		logger:  log.WithComponent("collector"),
		cfg:     cfg,
	}
}

// Run collects every instrument of job. Per-instrument failures are recorded, not returned;
// the error is non-nil only when ctx ends the run early.
func (c *Collector) Run(ctx context.Context, job Job) (*Summary, error) {
	start := time.Now()
	log := c.logger.WithFields(map[string]interface{}{
		"job":     job.Name,
		"count":   len(job.Instruments),
		"from":    contracts.DateKey(job.From),
		"to":      contracts.DateKey(job.To),
		"workers": c.cfg.Workers,
		"resume":  job.Resume,
	})
	log.Info("Starting collection")

	instCh := make(chan contracts.Instrument)
	resultCh := make(chan FetchResult, len(job.Instruments))

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, job, instCh, resultCh)
		}(i)
	}

	go func() {
		defer close(instCh)
		for _, inst := range job.Instruments {
			select {
			case instCh <- inst:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	summary := &Summary{Job: job.Name}
	for r := range resultCh {
		summary.add(r)
	}
	summary.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"success":  summary.Success,
		"empty":    summary.Empty,
		"failed":   summary.Failed,
		"skipped":  summary.Skipped,
		"rows":     summary.Rows,
		"duration": summary.Duration.String(),
	}).Info("Collection completed")

	return summary, ctx.Err()
}

func (s *Summary) add(r FetchResult) {
	s.Total++
	s.Results = append(s.Results, r)
	switch {
	case r.Skipped:
		s.Skipped++
	case r.State == contracts.FetchSuccess:
		s.Success++
		s.Rows += r.Rows
	case r.State == contracts.FetchEmpty:
		s.Empty++
	default:
		s.Failed++
	}
}

func (c *Collector) worker(ctx context.Context, workerID int, job Job, in <-chan contracts.Instrument, out chan<- FetchResult) {
	for inst := range in {
		if ctx.Err() != nil {
			return
		}

		r := c.collectOne(ctx, job, inst)
		out <- r

		if r.Error != nil {
			c.logger.WithError(r.Error).WithFields(map[string]interface{}{
				"worker": workerID,
				"code":   inst.Code,
			}).Warn("Instrument failed")
		}
		if !r.Skipped {
			c.pause(ctx)
		}
	}
}

func (c *Collector) collectOne(ctx context.Context, job Job, inst contracts.Instrument) FetchResult {
	kind := string(inst.Kind)
	if kind == "" {
		kind = string(contracts.KindStock)
	}

	if c.skipped(inst.Code) {
		c.metrics.Instruments.WithLabelValues(kind, "skipped").Inc()
		return FetchResult{Code: inst.Code, Skipped: true}
	}

	if job.Resume {
		st, err := c.status.Get(ctx, job.Name, inst.Code)
		if err != nil {
			return c.fail(ctx, job, inst.Code, kind, err)
		}
		if st != nil && st.State.Done() {
			c.metrics.Instruments.WithLabelValues(kind, "skipped").Inc()
			return FetchResult{Code: inst.Code, State: st.State, Skipped: true}
		}
	}

	if err := c.status.MarkPending(ctx, job.Name, inst.Code); err != nil {
		return FetchResult{Code: inst.Code, State: contracts.FetchError, Error: err}
	}

	start := time.Now()
	defer func() {
		c.metrics.Duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	bars, err := c.source.FetchPrices(ctx, inst.Code, job.From, job.To)
	if err != nil {
		return c.fail(ctx, job, inst.Code, kind, fmt.Errorf("fetch prices: %w", err))
	}
	if len(bars) == 0 {
		if err := c.status.Mark(ctx, job.Name, inst.Code, contracts.FetchEmpty, 0, ""); err != nil {
			return FetchResult{Code: inst.Code, State: contracts.FetchError, Error: err}
		}
		c.metrics.Instruments.WithLabelValues(kind, string(contracts.FetchEmpty)).Inc()
		return FetchResult{Code: inst.Code, State: contracts.FetchEmpty}
	}

	for i := range bars {
		bars[i].Code = inst.Code
	}

	if inst.Kind != contracts.KindIndex {
		eps, err := c.source.FetchAnnualEPS(ctx, inst.Code)
		if err != nil {
			// prices are still worth keeping; PE stays 0 and the stock is never ranked
			c.logger.WithError(err).WithField("code", inst.Code).Warn("EPS unavailable")
		}
		ApplyEarnings(bars, eps)
	}

	rows, err := c.fillAndSave(ctx, inst.Code, bars)
	if err != nil {
		return c.fail(ctx, job, inst.Code, kind, err)
	}

	if err := c.status.Mark(ctx, job.Name, inst.Code, contracts.FetchSuccess, rows, ""); err != nil {
		return FetchResult{Code: inst.Code, State: contracts.FetchError, Error: err}
	}
	c.metrics.Instruments.WithLabelValues(kind, string(contracts.FetchSuccess)).Inc()
	c.metrics.Rows.WithLabelValues(kind).Add(float64(rows))

	return FetchResult{Code: inst.Code, State: contracts.FetchSuccess, Rows: rows}
}

// fillAndSave fills calendar gaps, including the gap between the last stored bar and
// the first fetched one, and writes the result.
func (c *Collector) fillAndSave(ctx context.Context, code string, bars []contracts.Bar) (int, error) {
	filled := s0_data.FillNonTradingDays(bars)
	first := filled[0].TradeDate

	prior, err := c.bars.History(ctx, code, first.AddDate(0, 0, -31), first.AddDate(0, 0, -1))
	if err != nil {
		return 0, fmt.Errorf("load prior bars: %w", err)
	}
	if len(prior) > 0 {
		last := prior[len(prior)-1]
		withPrior := s0_data.FillNonTradingDays(append([]contracts.Bar{last}, filled...))
		filled = withPrior[1:]
	}

	if err := c.bars.SaveBars(ctx, filled); err != nil {
		return 0, fmt.Errorf("save bars: %w", err)
	}
	return len(filled), nil
}

func (c *Collector) fail(ctx context.Context, job Job, code, kind string, err error) FetchResult {
	c.metrics.Instruments.WithLabelValues(kind, string(contracts.FetchError)).Inc()
	if errors.Is(err, context.Canceled) {
		// leave the pending mark, the next run retries it
		return FetchResult{Code: code, State: contracts.FetchPending, Error: err}
	}
	if markErr := c.status.Mark(ctx, job.Name, code, contracts.FetchError, 0, err.Error()); markErr != nil {
		err = errors.Join(err, markErr)
	}
	return FetchResult{Code: code, State: contracts.FetchError, Error: err}
}

func (c *Collector) skipped(code string) bool {
	for _, p := range c.cfg.SkipPrefixes {
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func (c *Collector) pause(ctx context.Context) {
	if c.cfg.Pause <= 0 {
		return
	}
	d := c.cfg.Pause + time.Duration(rand.Int63n(int64(c.cfg.Pause)+1))
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
