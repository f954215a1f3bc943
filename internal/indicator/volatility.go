package indicator

import "math"

// RollingStd calculates the rolling sample standard deviation.
// Returns slice of length: len(prices) - period + 1
func RollingStd(prices []float64, period int) []float64 {
	if period < 2 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]

		var sum float64
		for _, p := range window {
			sum += p
		}
		mean := sum / float64(period)

		var ss float64
		for _, p := range window {
			d := p - mean
			ss += d * d
		}
		result = append(result, math.Sqrt(ss/float64(period-1)))
	}

	return result
}

// ZScore calculates how many rolling standard deviations the current price
// sits from the rolling mean. A zero-deviation window yields 0, not Inf,
// so constant prices never trigger a threshold.
// Returns slice of length: len(prices) - period + 1
func ZScore(prices []float64, period int) []float64 {
	if period < 2 || len(prices) < period {
		return []float64{}
	}

	mean := SMA(prices, period)
	std := RollingStd(prices, period)

	result := make([]float64, len(mean))
	for i := range mean {
		if std[i] == 0 {
			result[i] = 0
			continue
		}
		result[i] = (prices[i+period-1] - mean[i]) / std[i]
	}

	return result
}

// Bollinger calculates Bollinger Bands: middle (SMA), upper and lower at
// mult rolling standard deviations around it.
// Each returned slice has length: len(prices) - period + 1
func Bollinger(prices []float64, period int, mult float64) (middle, upper, lower []float64) {
	if period < 2 || len(prices) < period {
		return []float64{}, []float64{}, []float64{}
	}

	middle = SMA(prices, period)
	std := RollingStd(prices, period)

	upper = make([]float64, len(middle))
	lower = make([]float64, len(middle))
	for i := range middle {
		upper[i] = middle[i] + mult*std[i]
		lower[i] = middle[i] - mult*std[i]
	}

	return middle, upper, lower
}
