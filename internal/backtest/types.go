package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/quantkit/helix/internal/core"
)

// Config controls the simulation.
type Config struct {
	// TransactionCost is the fraction of notional charged per unit of
	// position change. Zero disables costs.
	TransactionCost float64
	// Silent suppresses the per-run report log, used by the optimizer.
	Silent bool
}

// Frame holds the prepared series: the input columns plus every derived
// column, in bar order. All slices have equal length and are owned by the
// frame; the source series is never touched.
type Frame struct {
	Time       []time.Time
	Close      []float64
	Position   []float64
	Returns    []float64
	Costs      []float64
	PnL        []float64
	CumPnL     []float64
	Equity     []float64
	RunningMax []float64
	Drawdown   []float64
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int {
	return len(f.Close)
}

// TotalCosts returns the sum of per-bar transaction costs.
func (f *Frame) TotalCosts() float64 {
	var sum float64
	for _, c := range f.Costs {
		sum += c
	}
	return sum
}

// Trade represents one position-holding episode from entry to exit.
// PnL includes every bar from the entry bar through the exit bar; the bar
// where the position returns to flat still contributes before the trade
// closes. Duration counts bars inclusive of both ends.
type Trade struct {
	EntryIndex int
	ExitIndex  int
	EntryTime  time.Time
	ExitTime   time.Time
	PnL        float64
	Duration   int
	Open       bool // position never returned to flat before the series ended
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// Metric identifies one field of a Report.
type Metric string

const (
	MetricTotalReturn          Metric = "total_return"
	MetricAnnualReturn         Metric = "annual_return"
	MetricSharpe               Metric = "sharpe"
	MetricSortino              Metric = "sortino"
	MetricMaxDrawdown          Metric = "max_drawdown"
	MetricCalmar               Metric = "calmar"
	MetricProfitFactor         Metric = "profit_factor"
	MetricWinRate              Metric = "win_rate"
	MetricTotalTrades          Metric = "total_trades"
	MetricTimeInMarket         Metric = "time_in_market"
	MetricAvgTradeDuration     Metric = "avg_trade_duration"
	MetricMaxConsecutiveLosses Metric = "max_consecutive_losses"
	MetricRecoveryTime         Metric = "recovery_time"
)

// Metrics lists every metric a report carries, in report order.
func Metrics() []Metric {
	return []Metric{
		MetricTotalReturn, MetricAnnualReturn, MetricSharpe, MetricSortino,
		MetricMaxDrawdown, MetricCalmar, MetricProfitFactor, MetricWinRate,
		MetricTotalTrades, MetricTimeInMarket, MetricAvgTradeDuration,
		MetricMaxConsecutiveLosses, MetricRecoveryTime,
	}
}

// MetricValue is a metric that can saturate to +Inf (calmar with a
// no-loss strategy, profit factor with no losing trades, recovery time
// when the drawdown never heals). encoding/json rejects IEEE infinities,
// so they are carried as the strings "inf" and "-inf" on the wire.
type MetricValue float64

// MarshalJSON implements json.Marshaler.
func (v MetricValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-inf"`), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *MetricValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "inf":
			*v = MetricValue(math.Inf(1))
			return nil
		case "-inf":
			*v = MetricValue(math.Inf(-1))
			return nil
		}
		return fmt.Errorf("unknown metric value %q", s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = MetricValue(f)
	return nil
}

// Report is the fixed-shape metrics record of one backtest run. Percent
// metrics (returns, drawdown, win rate, time in market) are already scaled
// by 100.
type Report struct {
	TotalReturn          float64     `json:"total_return"`
	AnnualReturn         float64     `json:"annual_return"`
	Sharpe               float64     `json:"sharpe"`
	Sortino              float64     `json:"sortino"`
	MaxDrawdown          float64     `json:"max_drawdown"`
	Calmar               MetricValue `json:"calmar"`
	ProfitFactor         MetricValue `json:"profit_factor"`
	WinRate              float64     `json:"win_rate"`
	TotalTrades          int         `json:"total_trades"`
	TimeInMarket         float64     `json:"time_in_market"`
	AvgTradeDuration     float64     `json:"avg_trade_duration"`
	MaxConsecutiveLosses int         `json:"max_consecutive_losses"`
	RecoveryTime         MetricValue `json:"recovery_time"`
}

// Value returns the named metric as a float64.
func (r Report) Value(m Metric) (float64, error) {
	switch m {
	case MetricTotalReturn:
		return r.TotalReturn, nil
	case MetricAnnualReturn:
		return r.AnnualReturn, nil
	case MetricSharpe:
		return r.Sharpe, nil
	case MetricSortino:
		return r.Sortino, nil
	case MetricMaxDrawdown:
		return r.MaxDrawdown, nil
	case MetricCalmar:
		return float64(r.Calmar), nil
	case MetricProfitFactor:
		return float64(r.ProfitFactor), nil
	case MetricWinRate:
		return r.WinRate, nil
	case MetricTotalTrades:
		return float64(r.TotalTrades), nil
	case MetricTimeInMarket:
		return r.TimeInMarket, nil
	case MetricAvgTradeDuration:
		return r.AvgTradeDuration, nil
	case MetricMaxConsecutiveLosses:
		return float64(r.MaxConsecutiveLosses), nil
	case MetricRecoveryTime:
		return float64(r.RecoveryTime), nil
	}
	return 0, core.WrapError(core.ErrMetricUnknown, fmt.Errorf("%q", m))
}

// Result holds the complete backtest output
type Result struct {
	Frame  *Frame
	Trades []Trade
	Report Report
}
