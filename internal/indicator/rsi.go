package indicator

// RSI calculates the Relative Strength Index using rolling-mean gains and
// losses. The first value corresponds to prices[period], since one price
// difference is consumed before the rolling window fills.
// Returns slice of length: len(prices) - period
func RSI(prices []float64, period int) []float64 {
	if period < 1 || len(prices) <= period {
		return []float64{}
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	result := make([]float64, len(avgGain))
	for i := range avgGain {
		switch {
		case avgLoss[i] > 0:
			rs := avgGain[i] / avgLoss[i]
			result[i] = 100 - 100/(1+rs)
		case avgGain[i] > 0:
			// All-gain window: maximally overbought.
			result[i] = 100
		default:
			// Flat window: neutral.
			result[i] = 50
		}
	}

	return result
}
