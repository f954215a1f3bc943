package backtest

import (
	"github.com/quantkit/helix/internal/core"
	"go.uber.org/zap"
)

// Runner executes backtests over position-tagged series.
type Runner struct {
	cfg Config
	log *zap.Logger
}

// NewRunner creates a new Runner. A nil logger disables logging.
func NewRunner(cfg Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run validates the series, prepares it and computes its report in one
// call. Idempotent: running twice on the same input yields identical
// results, since no state survives between runs.
func (r *Runner) Run(series core.Series) (*Result, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	frame := Prepare(series, r.cfg)
	trades := SegmentTrades(frame)
	report := CalcReport(frame, trades)

	if !r.cfg.Silent {
		r.log.Info("backtest complete",
			zap.Int("bars", frame.Len()),
			zap.Int("trades", len(trades)),
			zap.Float64("total_return_pct", report.TotalReturn),
			zap.Float64("sharpe", report.Sharpe),
			zap.Float64("max_drawdown_pct", report.MaxDrawdown))
	}

	return &Result{Frame: frame, Trades: trades, Report: report}, nil
}
