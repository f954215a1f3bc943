package zscore

import (
	"fmt"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/indicator"
	"github.com/quantkit/helix/internal/strategy"
)

// MeanReversion buys dips: it goes long a fixed fraction of capital when
// the close sits more than threshold standard deviations below its moving
// average, but only while the close is above the long-term trend average.
type MeanReversion struct {
	window      int
	threshold   float64
	size        float64
	trendWindow int
}

// New creates a mean reversion strategy with the default parameters.
func New() *MeanReversion {
	return &MeanReversion{
		window:      20,
		threshold:   2.0,
		size:        0.25,
		trendWindow: 200,
	}
}

func (m *MeanReversion) Name() string {
	return "zscore"
}

func (m *MeanReversion) Description() string {
	return fmt.Sprintf("Z-score mean reversion (window %d, threshold %.2f, %.0f%% position)",
		m.window, m.threshold, m.size*100)
}

func (m *MeanReversion) Defaults() strategy.Params {
	return strategy.Params{
		"window":       float64(m.window),
		"threshold":    m.threshold,
		"size":         m.size,
		"trend_window": float64(m.trendWindow),
	}
}

// Signals marks a long of `size` on every bar whose z-score is below
// -threshold while the close is above the trend average. Bars inside the
// indicator warm-up stay flat. A trend_window of zero disables the filter.
func (m *MeanReversion) Signals(series core.Series, params strategy.Params) (core.Series, error) {
	window := params.Int("window", m.window)
	threshold := params.Get("threshold", m.threshold)
	size := params.Get("size", m.size)
	trendWindow := params.Int("trend_window", m.trendWindow)

	closes := series.Closes()
	zscores := indicator.ZScore(closes, window)
	var trend []float64
	if trendWindow > 0 {
		trend = indicator.SMA(closes, trendWindow)
	}

	positions := make([]float64, len(series))
	for t := range closes {
		zi := t - window + 1
		if zi < 0 || zi >= len(zscores) {
			continue
		}
		if zscores[zi] >= -threshold {
			continue
		}
		if trendWindow > 0 {
			ti := t - trendWindow + 1
			if ti < 0 || ti >= len(trend) || closes[t] <= trend[ti] {
				continue
			}
		}
		positions[t] = size
	}

	return series.WithPositions(positions)
}
