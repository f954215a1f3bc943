// internal/storage/archive/archiver_test.go
package archive

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
)

func testArchiver(t *testing.T) *Archiver {
	t.Helper()
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	return NewArchiver(fs, nil)
}

func TestArchiver_SaveLoad(t *testing.T) {
	a := testArchiver(t)
	ctx := context.Background()

	rec := Record{
		Symbol:    "BTC",
		Strategy:  "zscore",
		Interval:  core.Interval24h,
		Params:    map[string]float64{"window": 20, "threshold": 2},
		CreatedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Report: &backtest.Report{
			TotalReturn: 12.5,
			Sharpe:      1.8,
			Calmar:      backtest.MetricValue(math.Inf(1)),
		},
	}

	path, err := a.Save(ctx, rec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != "results/btc/zscore/20240301T123000Z.json" {
		t.Errorf("path = %q", path)
	}

	got, err := a.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.Symbol != "BTC" || got.Strategy != "zscore" {
		t.Errorf("identity fields lost: %+v", got)
	}
	if got.Params["window"] != 20 {
		t.Errorf("params lost: %v", got.Params)
	}
	if got.Report == nil || got.Report.Sharpe != 1.8 {
		t.Fatalf("report lost: %+v", got.Report)
	}
	// Saturated metrics survive the JSON round trip.
	if !math.IsInf(float64(got.Report.Calmar), 1) {
		t.Errorf("calmar = %v, want +Inf", got.Report.Calmar)
	}
}

func TestArchiver_Save_StampsCreatedAt(t *testing.T) {
	a := testArchiver(t)

	path, err := a.Save(context.Background(), Record{Symbol: "BTC", Strategy: "bollinger"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, err := a.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestArchiver_Save_RequiresIdentity(t *testing.T) {
	a := testArchiver(t)

	if _, err := a.Save(context.Background(), Record{Strategy: "zscore"}); err == nil {
		t.Error("expected error without symbol")
	}
	if _, err := a.Save(context.Background(), Record{Symbol: "BTC"}); err == nil {
		t.Error("expected error without strategy")
	}
}

func TestArchiver_List(t *testing.T) {
	a := testArchiver(t)
	ctx := context.Background()

	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := []Record{
		{Symbol: "BTC", Strategy: "zscore", CreatedAt: stamp},
		{Symbol: "BTC", Strategy: "zscore", CreatedAt: stamp.Add(time.Hour)},
		{Symbol: "BTC", Strategy: "bollinger", CreatedAt: stamp},
		{Symbol: "ETH", Strategy: "zscore", CreatedAt: stamp},
	}
	for _, rec := range seed {
		if _, err := a.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	paths, err := a.List(ctx, "BTC", "zscore")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("BTC/zscore records = %d, want 2", len(paths))
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, "results/btc/zscore/") {
			t.Errorf("unexpected path %q", p)
		}
	}

	paths, err = a.List(ctx, "BTC", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 3 {
		t.Errorf("BTC records = %d, want 3", len(paths))
	}

	paths, err = a.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 4 {
		t.Errorf("all records = %d, want 4", len(paths))
	}
}
