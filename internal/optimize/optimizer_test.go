package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// paramSignals builds a two-bar series whose return grows with the
// parameters, so total_return ranks combinations deterministically:
// total_return = (window + threshold) / 10 percent.
func paramSignals(params Combination) (core.Series, error) {
	window, _ := params.Get("window")
	threshold, _ := params.Get("threshold")
	k := (window + threshold) / 1000

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return core.Series{
		{Time: base, Close: 100, Position: 1},
		{Time: base.AddDate(0, 0, 1), Close: 100 * (1 + k), Position: 1},
	}, nil
}

func testGrid() Grid {
	return Grid{
		ValueList("window", 10, 20),
		ValueList("threshold", 1.0, 2.0),
	}
}

func TestOptimizer_Run(t *testing.T) {
	opt := New(Config{Target: backtest.MetricTotalReturn}, nil)

	result, err := opt.Run(context.Background(), testGrid(), paramSignals)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Total != 4 || result.Skipped != 0 || len(result.Rows) != 4 {
		t.Fatalf("got total=%d skipped=%d rows=%d, want 4/0/4",
			result.Total, result.Skipped, len(result.Rows))
	}

	// Descending by total_return: (20,2) (20,1) (10,2) (10,1).
	want := [][2]float64{{20, 2}, {20, 1}, {10, 2}, {10, 1}}
	for i, row := range result.Rows {
		if row.Rank != i+1 {
			t.Errorf("row %d rank = %d, want %d", i, row.Rank, i+1)
		}
		w, _ := row.Params.Get("window")
		th, _ := row.Params.Get("threshold")
		if w != want[i][0] || th != want[i][1] {
			t.Errorf("row %d params = (%v, %v), want (%v, %v)", i, w, th, want[i][0], want[i][1])
		}
		// Every row carries the report of its own combination.
		if got := row.Report.TotalReturn; math.Abs(got-(w+th)/10) > 1e-9 {
			t.Errorf("row %d total_return = %v, want %v", i, got, (w+th)/10)
		}
	}

	best, ok := result.Best()
	if !ok {
		t.Fatal("Best should exist")
	}
	if w, _ := best.Params.Get("window"); w != 20 {
		t.Errorf("best window = %v, want 20", w)
	}
}

func TestOptimizer_Run_SkipsFailures(t *testing.T) {
	zapCore, logs := observer.New(zap.WarnLevel)
	opt := New(Config{Target: backtest.MetricTotalReturn}, zap.New(zapCore))

	signals := func(params Combination) (core.Series, error) {
		w, _ := params.Get("window")
		th, _ := params.Get("threshold")
		if w == 10 && th == 2.0 {
			return nil, fmt.Errorf("window too short for threshold")
		}
		return paramSignals(params)
	}

	result, err := opt.Run(context.Background(), testGrid(), signals)
	if err != nil {
		t.Fatalf("one bad combination must not abort the search: %v", err)
	}

	if result.Total != 4 || result.Skipped != 1 || len(result.Rows) != 3 {
		t.Fatalf("got total=%d skipped=%d rows=%d, want 4/1/3",
			result.Total, result.Skipped, len(result.Rows))
	}
	for _, row := range result.Rows {
		w, _ := row.Params.Get("window")
		th, _ := row.Params.Get("threshold")
		if w == 10 && th == 2.0 {
			t.Error("failed combination must not appear in the rows")
		}
	}
	if got := logs.FilterMessage("combination skipped").Len(); got != 1 {
		t.Errorf("skip warnings = %d, want 1", got)
	}
}

func TestOptimizer_Run_Parallel(t *testing.T) {
	grid := Grid{
		Range("window", 10, 60, 5),
		Range("threshold", 0.5, 3.0, 0.25),
	}

	sequential, err := New(Config{Target: backtest.MetricTotalReturn, Workers: 1}, nil).
		Run(context.Background(), grid, paramSignals)
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	parallel, err := New(Config{Target: backtest.MetricTotalReturn, Workers: 4}, nil).
		Run(context.Background(), grid, paramSignals)
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	if len(parallel.Rows) != grid.Size() {
		t.Fatalf("parallel rows = %d, want %d", len(parallel.Rows), grid.Size())
	}
	if !reflect.DeepEqual(sequential.Rows, parallel.Rows) {
		t.Error("parallel ranking must match the sequential run")
	}
}

func TestOptimizer_Run_UnknownTarget(t *testing.T) {
	opt := New(Config{Target: "bogus"}, nil)

	_, err := opt.Run(context.Background(), testGrid(), paramSignals)
	if !errors.Is(err, core.ErrMetricUnknown) {
		t.Errorf("expected ErrMetricUnknown, got %v", err)
	}
}

func TestOptimizer_Run_InvalidGrid(t *testing.T) {
	opt := New(Config{}, nil)

	_, err := opt.Run(context.Background(), Grid{}, paramSignals)
	if !errors.Is(err, core.ErrGridInvalid) {
		t.Errorf("expected ErrGridInvalid, got %v", err)
	}
}

func TestOptimizer_Run_Cancelled(t *testing.T) {
	opt := New(Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := opt.Run(ctx, testGrid(), paramSignals); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResult_Best_Empty(t *testing.T) {
	var r Result
	if _, ok := r.Best(); ok {
		t.Error("empty result has no best row")
	}
}
