package bollinger

import (
	"fmt"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/indicator"
	"github.com/quantkit/helix/internal/strategy"
)

// RSI filter levels and window, fixed alongside the band parameters.
const (
	rsiLength     = 14
	rsiOversold   = 30
	rsiOverbought = 70
)

// Bands trades reversions off the Bollinger envelope in both directions:
// long at a lower-band touch confirmed by an oversold RSI, short at an
// upper-band touch confirmed by an overbought RSI, flat again once the
// close crosses back through the middle band.
type Bands struct {
	window int
	mult   float64
}

// New creates a Bollinger band strategy with the default parameters.
func New() *Bands {
	return &Bands{
		window: 20,
		mult:   2.0,
	}
}

func (b *Bands) Name() string {
	return "bollinger"
}

func (b *Bands) Description() string {
	return fmt.Sprintf("Bollinger band reversion (window %d, %.2f std)", b.window, b.mult)
}

func (b *Bands) Defaults() strategy.Params {
	return strategy.Params{
		"bb_window": float64(b.window),
		"bb_mult":   b.mult,
	}
}

// Signals holds the entered position until the close returns to the middle
// band, producing signed positions in {-1, 0, 1}. Entries need both the
// bands and the RSI defined, so the longer of the two warm-ups stays flat.
func (b *Bands) Signals(series core.Series, params strategy.Params) (core.Series, error) {
	window := params.Int("bb_window", b.window)
	mult := params.Get("bb_mult", b.mult)

	closes := series.Closes()
	middle, upper, lower := indicator.Bollinger(closes, window, mult)
	rsi := indicator.RSI(closes, rsiLength)

	positions := make([]float64, len(series))
	var pos float64
	for t := range closes {
		bi := t - window + 1
		ri := t - rsiLength
		if bi >= 0 && bi < len(middle) && ri >= 0 && ri < len(rsi) {
			switch {
			case closes[t] <= lower[bi] && rsi[ri] < rsiOversold:
				pos = 1
			case closes[t] >= upper[bi] && rsi[ri] > rsiOverbought:
				pos = -1
			case pos == 1 && closes[t] >= middle[bi]:
				pos = 0
			case pos == -1 && closes[t] <= middle[bi]:
				pos = 0
			}
		}
		positions[t] = pos
	}

	return series.WithPositions(positions)
}
