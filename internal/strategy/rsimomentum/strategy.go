package rsimomentum

import (
	"fmt"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/indicator"
	"github.com/quantkit/helix/internal/strategy"
)

// Momentum rides overbought breakouts: long from the bar where RSI crosses
// above the threshold until the bar where it crosses back below.
type Momentum struct {
	length    int
	threshold float64
}

// New creates an RSI momentum strategy with the default parameters.
func New() *Momentum {
	return &Momentum{
		length:    14,
		threshold: 70,
	}
}

func (m *Momentum) Name() string {
	return "rsimomentum"
}

func (m *Momentum) Description() string {
	return fmt.Sprintf("RSI momentum (length %d, threshold %.0f)", m.length, m.threshold)
}

func (m *Momentum) Defaults() strategy.Params {
	return strategy.Params{
		"rsi_length":     float64(m.length),
		"rsi_overbought": m.threshold,
	}
}

// Signals walks the series holding the previous position until the RSI
// crosses the threshold: upward cross enters long, downward cross exits.
// A cross needs two consecutive defined RSI values, so the warm-up region
// stays flat.
func (m *Momentum) Signals(series core.Series, params strategy.Params) (core.Series, error) {
	length := params.Int("rsi_length", m.length)
	threshold := params.Get("rsi_overbought", m.threshold)

	closes := series.Closes()
	rsi := indicator.RSI(closes, length)

	positions := make([]float64, len(series))
	for t := 1; t < len(closes); t++ {
		prev := t - 1 - length
		curr := t - length
		if prev < 0 || curr >= len(rsi) {
			positions[t] = positions[t-1]
			continue
		}

		switch {
		case rsi[prev] <= threshold && rsi[curr] > threshold:
			positions[t] = 1
		case rsi[prev] >= threshold && rsi[curr] < threshold:
			positions[t] = 0
		default:
			positions[t] = positions[t-1]
		}
	}

	return series.WithPositions(positions)
}
