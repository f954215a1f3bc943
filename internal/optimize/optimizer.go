package optimize

import (
	"context"
	"sort"
	"sync"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"go.uber.org/zap"
)

// SignalFunc produces a position-tagged series for one parameter
// combination. Combinations may be evaluated concurrently, so
// implementations must not share mutable state across calls.
type SignalFunc func(params Combination) (core.Series, error)

// Config controls a grid run.
type Config struct {
	Backtest backtest.Config // simulation settings; runs are always silent
	Target   backtest.Metric // ranking metric, defaults to sharpe
	Workers  int             // concurrent evaluations; <=1 is sequential
}

// Optimizer evaluates a signal generator across a parameter grid and ranks
// the outcomes by a target metric.
type Optimizer struct {
	cfg    Config
	runner *backtest.Runner
	log    *zap.Logger
}

// New creates a new Optimizer. A nil logger disables logging.
func New(cfg Config, log *zap.Logger) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Target == "" {
		cfg.Target = backtest.MetricSharpe
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	btCfg := cfg.Backtest
	btCfg.Silent = true

	return &Optimizer{
		cfg:    cfg,
		runner: backtest.NewRunner(btCfg, log),
		log:    log,
	}
}

// Row pairs one combination with the report it produced. Rank is 1-based
// after sorting.
type Row struct {
	Rank   int             `json:"rank"`
	Params Combination     `json:"params"`
	Report backtest.Report `json:"metrics"`
}

// Result is the outcome of a grid run: surviving rows sorted descending by
// the target metric.
type Result struct {
	Target  backtest.Metric `json:"target"`
	Rows    []Row           `json:"rows"`
	Total   int             `json:"total"`
	Skipped int             `json:"skipped"`
}

// Best returns the top-ranked row.
func (r *Result) Best() (Row, bool) {
	if len(r.Rows) == 0 {
		return Row{}, false
	}
	return r.Rows[0], true
}

// Run expands the grid and evaluates every combination: generate signals,
// backtest silently, collect the report. A combination whose signal
// generation or backtest fails is logged and skipped; it never aborts the
// remaining grid. Rows are sorted descending by the target metric, with the
// original grid order breaking ties so repeated runs rank identically.
func (o *Optimizer) Run(ctx context.Context, grid Grid, signals SignalFunc) (*Result, error) {
	combos, err := grid.Expand()
	if err != nil {
		return nil, err
	}
	if _, err := (backtest.Report{}).Value(o.cfg.Target); err != nil {
		return nil, err
	}

	o.log.Info("starting grid search",
		zap.Int("combinations", len(combos)),
		zap.String("target", string(o.cfg.Target)),
		zap.Int("workers", o.cfg.Workers))

	type slot struct {
		row Row
		ok  bool
	}
	slots := make([]slot, len(combos))

	eval := func(i int) {
		combo := combos[i]
		series, err := signals(combo)
		if err != nil {
			o.log.Warn("combination skipped",
				zap.String("params", combo.String()),
				zap.Error(err))
			return
		}
		res, err := o.runner.Run(series)
		if err != nil {
			o.log.Warn("combination skipped",
				zap.String("params", combo.String()),
				zap.Error(err))
			return
		}
		slots[i] = slot{row: Row{Params: combo, Report: res.Report}, ok: true}
	}

	if o.cfg.Workers == 1 {
		for i := range combos {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			eval(i)
		}
	} else {
		// Each evaluation writes to its own slot, so collection needs
		// no lock; a semaphore bounds concurrency.
		semaphore := make(chan struct{}, o.cfg.Workers)
		var wg sync.WaitGroup
		for i := range combos {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				semaphore <- struct{}{}
				defer func() { <-semaphore }()
				eval(i)
			}(i)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(combos))
	skipped := 0
	for _, s := range slots {
		if s.ok {
			rows = append(rows, s.row)
		} else {
			skipped++
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		vi, _ := rows[i].Report.Value(o.cfg.Target)
		vj, _ := rows[j].Report.Value(o.cfg.Target)
		return vi > vj
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	o.log.Info("grid search complete",
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped))

	return &Result{
		Target:  o.cfg.Target,
		Rows:    rows,
		Total:   len(combos),
		Skipped: skipped,
	}, nil
}
