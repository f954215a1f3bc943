package indicator

// SMA calculates Simple Moving Average over a rolling window.
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return []float64{}
	}

	out := make([]float64, len(prices)-period+1)

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	out[0] = sum / float64(period)

	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		out[i-period+1] = sum / float64(period)
	}

	return out
}

// EMA calculates Exponential Moving Average, seeded with the SMA of
// the first window.
// Returns slice of length: len(prices) - period + 1
func EMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return []float64{}
	}

	out := make([]float64, len(prices)-period+1)
	alpha := 2.0 / float64(period+1)

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	ema := sum / float64(period)
	out[0] = ema

	for i := period; i < len(prices); i++ {
		ema += alpha * (prices[i] - ema)
		out[i-period+1] = ema
	}

	return out
}
