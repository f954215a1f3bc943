package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// periodsPerYear annualizes per-bar statistics. Bars are treated as
// daily-equivalent, matching a 365-day crypto trading calendar.
const periodsPerYear = 365

// recoveredWithin is the drawdown level treated as "back at the peak" when
// searching for the recovery point after the deepest trough.
const recoveredWithin = -0.001

// CalcReport computes the full metrics record from a prepared frame and its
// trade ledger. Pure function of its inputs.
//
// Degenerate input (fewer than two bars, or a PnL series with zero
// variance) short-circuits to an all-zero report: every ratio in the
// record would otherwise divide by zero, and a term-by-term fallback would
// leak NaN into consumers that sort or rank reports.
func CalcReport(f *Frame, trades []Trade) Report {
	n := f.Len()
	if n < 2 {
		return Report{}
	}

	mean := stat.Mean(f.PnL, nil)
	std := stat.StdDev(f.PnL, nil)
	if std == 0 {
		return Report{}
	}

	annualReturn := mean * periodsPerYear * 100
	maxDD := maxDrawdown(f.Drawdown)
	resolved := ResolvedPnL(trades)

	return Report{
		TotalReturn:          (f.Equity[n-1] - 1) * 100,
		AnnualReturn:         annualReturn,
		Sharpe:               mean / std * math.Sqrt(periodsPerYear),
		Sortino:              sortino(f.PnL, mean),
		MaxDrawdown:          maxDD,
		Calmar:               calmar(annualReturn, maxDD),
		ProfitFactor:         profitFactor(resolved),
		WinRate:              winRate(resolved),
		TotalTrades:          PositionChanges(f.Position),
		TimeInMarket:         timeInMarket(f.Position),
		AvgTradeDuration:     avgDuration(Durations(trades)),
		MaxConsecutiveLosses: maxConsecutiveLosses(resolved),
		RecoveryTime:         recoveryTime(f),
	}
}

// sortino normalizes mean PnL by downside deviation only. Zero when fewer
// than two losing periods exist: the sample deviation of the loss tail is
// undefined below that.
func sortino(pnl []float64, mean float64) float64 {
	var negatives []float64
	for _, p := range pnl {
		if p < 0 {
			negatives = append(negatives, p)
		}
	}
	if len(negatives) < 2 {
		return 0
	}
	downside := stat.StdDev(negatives, nil)
	if downside == 0 {
		return 0
	}
	return mean / downside * math.Sqrt(periodsPerYear)
}

// maxDrawdown returns the deepest decline as a positive percentage.
func maxDrawdown(drawdown []float64) float64 {
	min := 0.0
	for _, d := range drawdown {
		if d < min {
			min = d
		}
	}
	return math.Abs(min) * 100
}

// calmar divides annual return by max drawdown, both in percent. Below a
// 0.01 drawdown floor the ratio saturates instead of blowing up: +Inf for
// a profitable no-loss run, 0 otherwise.
func calmar(annualReturn, maxDD float64) MetricValue {
	if maxDD < 0.01 {
		if annualReturn > 0 {
			return MetricValue(math.Inf(1))
		}
		return 0
	}
	return MetricValue(annualReturn / maxDD)
}

// profitFactor is gross winning PnL over gross losing PnL across resolved
// trades. +Inf when wins exist and losses do not; 0 when neither exists.
func profitFactor(resolved []float64) MetricValue {
	var wins, losses float64
	for _, p := range resolved {
		if p > 0 {
			wins += p
		} else if p < 0 {
			losses -= p
		}
	}
	if losses > 0 {
		return MetricValue(wins / losses)
	}
	if wins > 0 {
		return MetricValue(math.Inf(1))
	}
	return 0
}

func winRate(resolved []float64) float64 {
	if len(resolved) == 0 {
		return 0
	}
	wins := 0
	for _, p := range resolved {
		if p > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(resolved)) * 100
}

func timeInMarket(positions []float64) float64 {
	if len(positions) == 0 {
		return 0
	}
	held := 0
	for _, p := range positions {
		if p != 0 {
			held++
		}
	}
	return float64(held) / float64(len(positions)) * 100
}

// avgDuration is the mean of the duration list, open trades included,
// reported to one decimal place.
func avgDuration(durations []int) float64 {
	if len(durations) == 0 {
		return 0
	}
	sum := 0
	for _, d := range durations {
		sum += d
	}
	mean := float64(sum) / float64(len(durations))
	return math.Round(mean*10) / 10
}

func maxConsecutiveLosses(resolved []float64) int {
	longest, run := 0, 0
	for _, p := range resolved {
		if p < 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// recoveryTime measures the days between the deepest drawdown trough and
// the first later bar whose drawdown is back within recoveredWithin of
// zero. +Inf when the series never recovers; 0 when the frame carries no
// usable timestamp or drawdown columns.
func recoveryTime(f *Frame) MetricValue {
	if len(f.Drawdown) != f.Len() || len(f.Time) != f.Len() {
		return 0
	}

	troughIdx := 0
	for i, d := range f.Drawdown {
		if d < f.Drawdown[troughIdx] {
			troughIdx = i
		}
	}

	if f.Time[troughIdx].IsZero() {
		return 0
	}

	for i := troughIdx + 1; i < f.Len(); i++ {
		if f.Drawdown[i] >= recoveredWithin {
			days := f.Time[i].Sub(f.Time[troughIdx]).Hours() / 24
			return MetricValue(days)
		}
	}
	return MetricValue(math.Inf(1))
}
