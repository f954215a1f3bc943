package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/config"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/optimize"
	"github.com/quantkit/helix/internal/storage/archive"
	"github.com/quantkit/helix/internal/strategy"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockProvider struct {
	name   string
	series core.Series
	err    error
}

func (m *mockProvider) Name() string                { return m.name }
func (m *mockProvider) Intervals() []core.Interval  { return []core.Interval{core.Interval24h} }
func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval core.Interval) (core.Series, error) {
	return m.series, m.err
}

// mockStrategy holds a constant position sized by the "size" param.
type mockStrategy struct {
	name string
	err  error
}

func (m *mockStrategy) Name() string              { return m.name }
func (m *mockStrategy) Description() string       { return "constant exposure" }
func (m *mockStrategy) Defaults() strategy.Params { return strategy.Params{"size": 1} }
func (m *mockStrategy) Signals(series core.Series, params strategy.Params) (core.Series, error) {
	if m.err != nil {
		return nil, m.err
	}
	size := params.Get("size", 1)
	positions := make([]float64, len(series))
	for i := range positions {
		positions[i] = size
	}
	return series.WithPositions(positions)
}

func dailySeries(closes ...float64) core.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(core.Series, len(closes))
	for i, c := range closes {
		series[i] = core.Bar{Time: base.Add(time.Duration(i) * 24 * time.Hour), Close: c}
	}
	return series
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Data.Dir = t.TempDir()
	cfg.Storage.Results.Path = t.TempDir()
	cfg.Backtest.TransactionCost = 0
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestNew_RegistersBuiltinStrategies(t *testing.T) {
	a := newTestApp(t)

	names := a.Strategies().Names()
	want := []string{"bollinger", "rsimomentum", "zscore"}
	if len(names) != len(want) {
		t.Fatalf("strategies = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestNew_SkipsDisabledStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies = map[string]config.StrategyConfig{
		"bollinger": {Enabled: false},
	}

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, name := range a.Strategies().Names() {
		if name == "bollinger" {
			t.Error("disabled strategy was registered")
		}
	}
	if len(a.Strategies().Names()) != 2 {
		t.Errorf("strategies = %v, want 2 entries", a.Strategies().Names())
	}
}

func TestNew_RegistersEnabledProviders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Providers = map[string]config.ProviderConfig{
		"binance":   {Enabled: true},
		"glassnode": {Enabled: false, APIKey: "k"},
	}

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	names := a.Providers().Names()
	if len(names) != 1 || names[0] != "binance" {
		t.Errorf("providers = %v, want [binance]", names)
	}
}

func TestNew_UnknownProviderSkipped(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	cfg := testConfig(t)
	cfg.Data.Providers = map[string]config.ProviderConfig{
		"kraken": {Enabled: true},
	}

	a, err := New(cfg, zap.New(obs))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if len(a.Providers().Names()) != 0 {
		t.Errorf("providers = %v, want none", a.Providers().Names())
	}
	if logs.FilterMessage("skipping provider").Len() != 1 {
		t.Error("expected a skipping provider warning")
	}
}

func TestNew_BadStorageType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Results.Type = "bogus"

	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for unknown storage type")
	}
}

func TestApp_History_UnknownProvider(t *testing.T) {
	a := newTestApp(t)

	_, err := a.History(context.Background(), "", "BTC", core.Interval24h, time.Now().AddDate(0, -1, 0), time.Now())
	if !errors.Is(err, core.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestApp_History_UsesDefaultProvider(t *testing.T) {
	a := newTestApp(t)
	a.Providers().Register(&mockProvider{name: "glassnode", series: dailySeries(100, 110, 121)})

	series, err := a.History(context.Background(), "", "BTC", core.Interval24h, time.Now().AddDate(0, -1, 0), time.Now())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(series) != 3 {
		t.Errorf("bars = %d, want 3", len(series))
	}
}

func TestApp_BacktestSeries(t *testing.T) {
	a := newTestApp(t)
	a.Strategies().Register(&mockStrategy{name: "hold"})

	// Full exposure over two +10% bars sums to 20 points of simple-return
	// pnl.
	result, err := a.BacktestSeries("hold", dailySeries(100, 110, 121), nil)
	if err != nil {
		t.Fatalf("BacktestSeries failed: %v", err)
	}

	if !almostEqual(result.Report.TotalReturn, 20.0, 1e-9) {
		t.Errorf("TotalReturn = %v, want 20", result.Report.TotalReturn)
	}
	if result.Report.TimeInMarket != 100 {
		t.Errorf("TimeInMarket = %v, want 100", result.Report.TimeInMarket)
	}
}

func TestApp_BacktestSeries_UnknownStrategy(t *testing.T) {
	a := newTestApp(t)

	_, err := a.BacktestSeries("nope", dailySeries(100, 110), nil)
	if !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestApp_Backtest_FetchesHistory(t *testing.T) {
	a := newTestApp(t)
	a.Providers().Register(&mockProvider{name: "mock", series: dailySeries(100, 110, 121)})
	a.Strategies().Register(&mockStrategy{name: "hold"})

	result, err := a.Backtest(context.Background(), BacktestParams{
		Symbol:   "BTC",
		Strategy: "hold",
		Provider: "mock",
		Interval: core.Interval24h,
		Start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if !almostEqual(result.Report.TotalReturn, 20.0, 1e-9) {
		t.Errorf("TotalReturn = %v, want 20", result.Report.TotalReturn)
	}
}

func TestApp_ConfigParamsApplied(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies = map[string]config.StrategyConfig{
		"scaled": {Enabled: true, Params: map[string]any{"size": 0.5}},
	}

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a.Strategies().Register(&mockStrategy{name: "scaled"})

	// Config halves the exposure, so pnl halves too.
	result, err := a.BacktestSeries("scaled", dailySeries(100, 110, 121), nil)
	if err != nil {
		t.Fatalf("BacktestSeries failed: %v", err)
	}
	if !almostEqual(result.Report.TotalReturn, 10.0, 1e-9) {
		t.Errorf("TotalReturn = %v, want 10", result.Report.TotalReturn)
	}

	// Run overrides win over config.
	result, err = a.BacktestSeries("scaled", dailySeries(100, 110, 121), strategy.Params{"size": 1})
	if err != nil {
		t.Fatalf("BacktestSeries failed: %v", err)
	}
	if !almostEqual(result.Report.TotalReturn, 20.0, 1e-9) {
		t.Errorf("TotalReturn = %v, want 20", result.Report.TotalReturn)
	}
}

func TestApp_OptimizeSeries(t *testing.T) {
	a := newTestApp(t)
	a.Strategies().Register(&mockStrategy{name: "sized"})

	result, err := a.OptimizeSeries(context.Background(), OptimizeParams{
		Strategy: "sized",
		Grid:     optimize.Grid{optimize.ValueList("size", 0.5, 1)},
		Target:   backtest.MetricTotalReturn,
	}, dailySeries(100, 110, 121))
	if err != nil {
		t.Fatalf("OptimizeSeries failed: %v", err)
	}

	if result.Total != 2 || result.Skipped != 0 {
		t.Errorf("total/skipped = %d/%d, want 2/0", result.Total, result.Skipped)
	}
	best, ok := result.Best()
	if !ok {
		t.Fatal("expected a best row")
	}
	if size, _ := best.Params.Get("size"); size != 1 {
		t.Errorf("best size = %v, want 1", size)
	}
	if !almostEqual(best.Report.TotalReturn, 20.0, 1e-9) {
		t.Errorf("best TotalReturn = %v, want 20", best.Report.TotalReturn)
	}
}

func TestApp_Optimize_Archives(t *testing.T) {
	a := newTestApp(t)
	a.Providers().Register(&mockProvider{name: "mock", series: dailySeries(100, 110, 121)})
	a.Strategies().Register(&mockStrategy{name: "sized"})

	_, err := a.Optimize(context.Background(), OptimizeParams{
		Symbol:   "BTC",
		Strategy: "sized",
		Provider: "mock",
		Interval: core.Interval24h,
		Start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Grid:     optimize.Grid{optimize.ValueList("size", 0.5, 1)},
		Target:   backtest.MetricTotalReturn,
		Archive:  true,
	})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	paths, err := a.Archiver().List(context.Background(), "BTC", "sized")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("archived records = %d, want 1", len(paths))
	}

	rec, err := a.Archiver().Load(context.Background(), paths[0])
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Grid == nil || rec.Grid.Total != 2 {
		t.Errorf("expected archived sweep with 2 rows, got %+v", rec.Grid)
	}
}

func TestApp_Archive(t *testing.T) {
	a := newTestApp(t)

	path, err := a.Archive(context.Background(), archive.Record{
		Symbol:   "BTC",
		Strategy: "hold",
		Report:   &backtest.Report{TotalReturn: 20},
	})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !strings.HasPrefix(path, "results/btc/hold/") {
		t.Errorf("unexpected archive path %q", path)
	}
}
