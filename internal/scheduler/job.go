package scheduler

import (
	"context"
	"time"
)

// Job is one after-close collection run, such as refreshing index bars or
// the stock universe. Run must be safe to repeat: the scheduler retries it
// and the collector's checkpoints skip codes that already succeeded.
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule is a six-field cron expression in market time, seconds first,
	// e.g. "0 30 16 * * MON-FRI" for 16:30 after the close
	Schedule() string
}

// JobResult is the outcome of one scheduled or manual run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job (about five months of trading days)
const maxHistory = 100

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Last returns the most recent result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// LastWhere returns the most recent result with the given outcome
func (h *JobHistory) LastWhere(success bool) (JobResult, bool) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success == success {
			return h.Results[i], true
		}
	}
	return JobResult{}, false
}

func (h *JobHistory) FailureCount() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// ConsecutiveFailures counts failed runs since the last success
func (h *JobHistory) ConsecutiveFailures() int {
	n := 0
	for i := len(h.Results) - 1; i >= 0 && !h.Results[i].Success; i-- {
		n++
	}
	return n
}

// SuccessRate is in [0, 1], zero before the first run
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-h.FailureCount()) / float64(len(h.Results))
}
