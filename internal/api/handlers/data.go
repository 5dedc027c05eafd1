package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/collector"
	"github.com/wonny/valuepool/pkg/logger"
)

// BarHistory reads stored daily bars of one instrument
type BarHistory interface {
	History(ctx context.Context, code string, from, to time.Time) ([]contracts.Bar, error)
}

// StatusLister reads collector checkpoints
type StatusLister interface {
	Jobs(ctx context.Context) ([]string, error)
	List(ctx context.Context, job string) ([]contracts.FetchStatus, error)
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	bars   BarHistory
	status StatusLister
	logger *logger.Logger
}

// NewDataHandler creates a new data handler. status may be nil when no checkpoint DB is configured.
func NewDataHandler(bars BarHistory, status StatusLister, log *logger.Logger) *DataHandler {
	return &DataHandler{
		bars:   bars,
		status: status,
		logger: log,
	}
}

// BarsResponse is the stored history of one instrument
type BarsResponse struct {
	Code  string          `json:"code"`
	From  string          `json:"from"`
	To    string          `json:"to"`
	Count int             `json:"count"`
	Bars  []contracts.Bar `json:"bars"`
}

// GetBars returns daily bars of one instrument
// GET /api/bars/{code}?from=YYYY-MM-DD&to=YYYY-MM-DD (default: last 30 days)
func (h *DataHandler) GetBars(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	to, err := parseDateParam(r, "to", contracts.Day(time.Now()))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}
	from, err := parseDateParam(r, "from", to.AddDate(0, 0, -30))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'from' must not be after 'to'")
		return
	}

	bars, err := h.bars.History(r.Context(), code, from, to)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve bars")
		return
	}
	if bars == nil {
		bars = []contracts.Bar{}
	}

	respondJSON(w, http.StatusOK, BarsResponse{
		Code:  code,
		From:  contracts.DateKey(from),
		To:    contracts.DateKey(to),
		Count: len(bars),
		Bars:  bars,
	})
}

// JobStatus summarises the checkpoints of one collection job
type JobStatus struct {
	Job      string                       `json:"job"`
	Counts   map[contracts.FetchState]int `json:"counts"`
	Failures []contracts.FetchStatus      `json:"failures,omitempty"`
}

// GetCollectorStatus returns checkpoint counts per job
// GET /api/collector/status?job=name (default: all jobs)
func (h *DataHandler) GetCollectorStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondError(w, http.StatusServiceUnavailable, "Collector status store not configured")
		return
	}
	ctx := r.Context()

	jobs := []string{}
	if job := r.URL.Query().Get("job"); job != "" {
		jobs = append(jobs, job)
	} else {
		all, err := h.status.Jobs(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list collector jobs")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve collector status")
			return
		}
		jobs = append(jobs, all...)
	}

	out := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		statuses, err := h.status.List(ctx, job)
		if err != nil {
			h.logger.WithError(err).WithField("job", job).Error("Failed to list collector status")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve collector status")
			return
		}

		js := JobStatus{Job: job, Counts: collector.Counts(statuses)}
		for _, st := range statuses {
			if st.State == contracts.FetchError {
				js.Failures = append(js.Failures, st)
			}
		}
		out = append(out, js)
	}

	respondJSON(w, http.StatusOK, out)
}
