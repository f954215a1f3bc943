package backtest

import (
	"math"

	"github.com/quantkit/helix/internal/core"
)

// Prepare derives returns, transaction costs, per-bar PnL, the equity curve,
// its running maximum and the drawdown series from the close and position
// columns. Pure function: the input series is never modified and every
// column of the returned frame is freshly allocated.
//
// The lag discipline is one bar: the position set at the close of bar t-1
// earns bar t's return, so PnL[0] is always zero. Costs are charged on the
// bar where the position changes, proportional to the size of the change.
func Prepare(series core.Series, cfg Config) *Frame {
	n := len(series)
	f := &Frame{
		Time:       series.Times(),
		Close:      series.Closes(),
		Position:   series.Positions(),
		Returns:    make([]float64, n),
		Costs:      make([]float64, n),
		PnL:        make([]float64, n),
		CumPnL:     make([]float64, n),
		Equity:     make([]float64, n),
		RunningMax: make([]float64, n),
		Drawdown:   make([]float64, n),
	}
	if n == 0 {
		return f
	}

	for t := 1; t < n; t++ {
		f.Returns[t] = f.Close[t]/f.Close[t-1] - 1
		f.Costs[t] = cfg.TransactionCost * math.Abs(f.Position[t]-f.Position[t-1])
		f.PnL[t] = f.Position[t-1]*f.Returns[t] - f.Costs[t]
	}

	f.CumPnL[0] = f.PnL[0]
	f.Equity[0] = 1 + f.PnL[0]
	f.RunningMax[0] = f.Equity[0]
	for t := 1; t < n; t++ {
		f.CumPnL[t] = f.CumPnL[t-1] + f.PnL[t]
		f.Equity[t] = f.Equity[t-1] * (1 + f.PnL[t])
		f.RunningMax[t] = math.Max(f.RunningMax[t-1], f.Equity[t])
	}

	for t := 0; t < n; t++ {
		f.Drawdown[t] = (f.Equity[t] - f.RunningMax[t]) / f.RunningMax[t]
	}

	return f
}
