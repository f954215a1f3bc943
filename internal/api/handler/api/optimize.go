// internal/api/handler/api/optimize.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/quantkit/helix/internal/api/job"
	"github.com/quantkit/helix/internal/api/response"
	"github.com/quantkit/helix/internal/app"
	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/metrics"
	"github.com/quantkit/helix/internal/optimize"
	"github.com/quantkit/helix/internal/strategy"
)

// OptimizeRunner is the slice of app.App the optimize handler needs.
type OptimizeRunner interface {
	Optimize(ctx context.Context, p app.OptimizeParams) (*optimize.Result, error)
}

// OptimizeRequest is the request body for starting a grid optimization.
// Grid maps parameter names to the candidate values to sweep.
type OptimizeRequest struct {
	Symbol   string               `json:"symbol"`
	Strategy string               `json:"strategy"`
	Provider string               `json:"provider,omitempty"`
	Interval string               `json:"interval,omitempty"`
	Start    string               `json:"start"`
	End      string               `json:"end"`
	Grid     map[string][]float64 `json:"grid"`
	Target   string               `json:"target,omitempty"`
	Workers  int                  `json:"workers,omitempty"`
	Archive  bool                 `json:"archive,omitempty"`
}

// OptimizeHandler handles grid optimization API requests.
type OptimizeHandler struct {
	jobs       *job.Store
	runner     OptimizeRunner
	strategies *strategy.Engine
	metrics    *metrics.Registry
}

// NewOptimizeHandler creates a new optimize handler. The metrics registry
// may be nil.
func NewOptimizeHandler(
	jobs *job.Store,
	runner OptimizeRunner,
	strategies *strategy.Engine,
	reg *metrics.Registry,
) *OptimizeHandler {
	return &OptimizeHandler{
		jobs:       jobs,
		runner:     runner,
		strategies: strategies,
		metrics:    reg,
	}
}

// Create starts a new optimization job.
func (h *OptimizeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
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

	grid, err := buildGrid(req.Grid)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	if req.Target != "" {
		// Reject unknown ranking metrics before spending any compute.
		if _, err := (backtest.Report{}).Value(backtest.Metric(req.Target)); err != nil {
			response.Error(w, http.StatusBadRequest, err)
			return
		}
	}

	j := h.jobs.Create("optimize")
	h.updateGauge()

	jobID := j.ID
	status := j.Status

	go h.run(jobID, app.OptimizeParams{
		Symbol:   req.Symbol,
		Strategy: req.Strategy,
		Provider: req.Provider,
		Interval: interval,
		Start:    start,
		End:      end,
		Grid:     grid,
		Target:   backtest.Metric(req.Target),
		Workers:  req.Workers,
		Archive:  req.Archive,
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id":       jobID,
		"status":       status,
		"combinations": grid.Size(),
	})
}

// run executes the optimization and updates job status.
func (h *OptimizeHandler) run(jobID string, p app.OptimizeParams) {
	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	result, err := h.runner.Optimize(ctx, p)

	if err != nil {
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
	} else {
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusComplete
			j.Progress = 100
			j.Result = result
		})
	}
	h.updateGauge()
}

func (h *OptimizeHandler) updateGauge() {
	if h.metrics != nil {
		h.metrics.SetJobsActive("optimize", h.jobs.ActiveCount("optimize"))
	}
}

// buildGrid converts the request grid map into an ordered parameter grid.
// Names are sorted so combination order is deterministic across requests.
func buildGrid(raw map[string][]float64) (optimize.Grid, error) {
	if len(raw) == 0 {
		return nil, core.WrapError(core.ErrGridInvalid, errors.New("grid is empty"))
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	grid := make(optimize.Grid, 0, len(names))
	for _, name := range names {
		values := raw[name]
		if len(values) == 0 {
			return nil, core.WrapError(core.ErrGridInvalid,
				fmt.Errorf("parameter %q has no values", name))
		}
		grid = append(grid, optimize.ValueList(name, values...))
	}
	return grid, nil
}
