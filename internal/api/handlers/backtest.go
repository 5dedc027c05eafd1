package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/valuepool/internal/backtest"
	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/strategyconfig"
	"github.com/wonny/valuepool/pkg/config"
	"github.com/wonny/valuepool/pkg/logger"
)

const maxBacktestBody = 1 << 20

// BacktestRunner runs one backtest
type BacktestRunner interface {
	Run(ctx context.Context, cfg backtest.Config) (*backtest.Result, error)
}

// BacktestHandler runs backtests on request
type BacktestHandler struct {
	engine   BacktestRunner
	defaults config.BacktestConfig
	logger   *logger.Logger
}

// NewBacktestHandler seeds request strategies from defaults (benchmark and calendar index)
func NewBacktestHandler(engine BacktestRunner, defaults config.BacktestConfig, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		engine:   engine,
		defaults: defaults,
		logger:   log,
	}
}

// BacktestResponse is the outcome of POST /api/backtests
type BacktestResponse struct {
	ConfigHash string                    `json:"config_hash"`
	StrategyID string                    `json:"strategy_id"`
	Pools      []contracts.PoolEntry     `json:"pools"`
	Series     *contracts.NetValueSeries `json:"series"`
	DurationMs int64                     `json:"duration_ms"`
	Warnings   []strategyconfig.Warning  `json:"warnings,omitempty"`
}

// Run executes a backtest. The body is a strategy in JSON; omitted fields keep their defaults.
// Reports are not rendered for API runs.
// POST /api/backtests
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBacktestBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	strategy := strategyconfig.DefaultFrom(h.defaults)
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(strategy); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	cfg, err := strategy.BacktestConfig()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.ReportPath = ""

	hash, _ := strategyconfig.Hash(strategy)
	h.logger.WithFields(map[string]interface{}{
		"strategy_id": strategy.Meta.StrategyID,
		"config_hash": hash,
	}).Info("Backtest requested")

	result, err := h.engine.Run(r.Context(), cfg)
	if err != nil {
		status := statusForBacktestError(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).Error("Backtest failed")
			respondError(w, status, "Backtest failed")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, BacktestResponse{
		ConfigHash: hash,
		StrategyID: strategy.Meta.StrategyID,
		Pools:      result.Pools.Entries(),
		Series:     result.Series,
		DurationMs: result.Duration.Milliseconds(),
		Warnings:   strategyconfig.Warn(strategy),
	})
}

func statusForBacktestError(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrEmptyCalendar),
		errors.Is(err, contracts.ErrNoPricedHoldings),
		errors.Is(err, contracts.ErrMissingBenchmarkRecord):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
