package optimize

import (
	"fmt"
	"math"
	"sort"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SensitivityGroup summarizes the target metric across the rows sharing
// one value of a parameter.
type SensitivityGroup struct {
	Value float64              `json:"value"`
	Count int                  `json:"count"`
	Mean  backtest.MetricValue `json:"mean"`
	Std   backtest.MetricValue `json:"std"`
	Min   backtest.MetricValue `json:"min"`
	Max   backtest.MetricValue `json:"max"`
}

// Sensitivity reports how the target metric responds to one parameter,
// grouped value by value in ascending order.
type Sensitivity struct {
	Param  string             `json:"param"`
	Groups []SensitivityGroup `json:"groups"`
}

// Sensitivity groups the result rows by the named parameter and summarizes
// the target metric for each of its values.
func (r *Result) Sensitivity(param string) (*Sensitivity, error) {
	groups := make(map[float64][]float64)
	for _, row := range r.Rows {
		v, ok := row.Params.Get(param)
		if !ok {
			return nil, core.WrapError(core.ErrGridInvalid,
				fmt.Errorf("parameter %q not present in results", param))
		}
		t, err := row.Report.Value(r.Target)
		if err != nil {
			return nil, err
		}
		groups[v] = append(groups[v], t)
	}

	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	out := &Sensitivity{Param: param, Groups: make([]SensitivityGroup, 0, len(keys))}
	for _, k := range keys {
		vals := groups[k]
		out.Groups = append(out.Groups, SensitivityGroup{
			Value: k,
			Count: len(vals),
			Mean:  sanitize(stat.Mean(vals, nil)),
			Std:   sanitize(stdOrZero(vals)),
			Min:   sanitize(floats.Min(vals)),
			Max:   sanitize(floats.Max(vals)),
		})
	}
	return out, nil
}

// Summary describes the target metric across every surviving row.
type Summary struct {
	Mean backtest.MetricValue `json:"mean"`
	Std  backtest.MetricValue `json:"std"`
	Min  backtest.MetricValue `json:"min"`
	Max  backtest.MetricValue `json:"max"`
}

// Summarize computes the overall target-metric statistics of the result.
func (r *Result) Summarize() Summary {
	if len(r.Rows) == 0 {
		return Summary{}
	}
	vals := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		vals[i], _ = row.Report.Value(r.Target)
	}
	return Summary{
		Mean: sanitize(stat.Mean(vals, nil)),
		Std:  sanitize(stdOrZero(vals)),
		Min:  sanitize(floats.Min(vals)),
		Max:  sanitize(floats.Max(vals)),
	}
}

// stdOrZero is the sample standard deviation, zero below two samples.
func stdOrZero(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

// sanitize clamps NaN to zero. A group mixing +Inf values has no finite
// deviation; consumers sort and render these summaries and must never see
// NaN.
func sanitize(v float64) backtest.MetricValue {
	if math.IsNaN(v) {
		return 0
	}
	return backtest.MetricValue(v)
}
