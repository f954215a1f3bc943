// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quantkit/helix/internal/api/job"
	"github.com/quantkit/helix/internal/api/response"
	"github.com/quantkit/helix/internal/app"
	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/metrics"
	"github.com/quantkit/helix/internal/strategy"
)

const runTimeout = 5 * time.Minute

// BacktestRunner is the slice of app.App the backtest handler needs.
type BacktestRunner interface {
	Backtest(ctx context.Context, p app.BacktestParams) (*backtest.Result, error)
}

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol   string         `json:"symbol"`
	Strategy string         `json:"strategy"`
	Provider string         `json:"provider,omitempty"`
	Interval string         `json:"interval,omitempty"`
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Params   map[string]any `json:"params,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobs       *job.Store
	runner     BacktestRunner
	strategies *strategy.Engine
	metrics    *metrics.Registry
}

// NewBacktestHandler creates a new backtest handler. The metrics registry
// may be nil.
func NewBacktestHandler(
	jobs *job.Store,
	runner BacktestRunner,
	strategies *strategy.Engine,
	reg *metrics.Registry,
) *BacktestHandler {
	return &BacktestHandler{
		jobs:       jobs,
		runner:     runner,
		strategies: strategies,
		metrics:    reg,
	}
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, err))
		return
	}

	if req.Symbol == "" || req.Strategy == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, errors.New("symbol and strategy are required")))
		return
	}

	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, err))
		return
	}

	interval, err := parseInterval(req.Interval)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, err))
		return
	}

	if _, ok := h.strategies.Get(req.Strategy); !ok {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrStrategyNotFound,
				fmt.Errorf("strategy %q (have %v)", req.Strategy, h.strategies.Names())))
		return
	}

	j := h.jobs.Create("backtest")
	h.updateGauge()

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	go h.run(jobID, app.BacktestParams{
		Symbol:   req.Symbol,
		Strategy: req.Strategy,
		Provider: req.Provider,
		Interval: interval,
		Start:    start,
		End:      end,
		Params:   strategy.FromConfig(req.Params),
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// run executes the backtest and updates job status.
func (h *BacktestHandler) run(jobID string, p app.BacktestParams) {
	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	result, err := h.runner.Backtest(ctx, p)

	if err != nil {
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
	} else {
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusComplete
			j.Progress = 100
			j.Result = result.Report
		})
	}
	h.updateGauge()
}

func (h *BacktestHandler) updateGauge() {
	if h.metrics != nil {
		h.metrics.SetJobsActive("backtest", h.jobs.ActiveCount("backtest"))
	}
}

// parseRange parses the start and end dates, accepting RFC3339 or
// date-only values.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := parseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s not after start %s", endStr, startStr)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseInterval maps the request interval to a bar resolution, defaulting
// to daily.
func parseInterval(s string) (core.Interval, error) {
	if s == "" {
		return core.Interval24h, nil
	}
	interval := core.Interval(s)
	if !interval.IsValid() {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return interval, nil
}

// asCoreError keeps coded errors intact for the job record.
func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return &core.Error{Code: "INTERNAL_ERROR", Message: "run failed", Cause: err}
}
