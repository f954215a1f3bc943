package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/provider"
)

func TestBinance_ImplementsProvider(t *testing.T) {
	var _ provider.Provider = (*Binance)(nil)
}

func TestBinance_Name(t *testing.T) {
	b := New()
	if b.Name() != "binance" {
		t.Errorf("expected 'binance', got '%s'", b.Name())
	}
}

func TestBinance_ToInterval(t *testing.T) {
	tests := []struct {
		input    core.Interval
		expected string
		wantErr  bool
	}{
		{core.Interval1h, "1h", false},
		{core.Interval24h, "1d", false},
		{core.Interval1w, "1w", false},
		{core.Interval10m, "", true},
		{core.Interval("unknown"), "", true},
	}

	for _, tc := range tests {
		got, err := toInterval(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("toInterval(%s): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("toInterval(%s): %v", tc.input, err)
		}
		if got != tc.expected {
			t.Errorf("toInterval(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func kline(openTime int64, o, h, l, c float64) string {
	return fmt.Sprintf(`[%d,"%.2f","%.2f","%.2f","%.2f","100.0",%d]`,
		openTime, o, h, l, c, openTime+3599999)
}

func TestBinance_FetchHistory(t *testing.T) {
	var query string

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s,%s]",
			kline(base.UnixMilli(), 42000, 42500, 41800, 42300),
			kline(base.Add(time.Hour).UnixMilli(), 42300, 42400, 42100, 42200))
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)

	series, err := b.FetchHistory(context.Background(), "BTC", base, base.Add(2*time.Hour), core.Interval1h)
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if len(series) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(series))
	}
	if series[0].Open != 42000 || series[0].High != 42500 || series[0].Low != 41800 || series[0].Close != 42300 {
		t.Errorf("bar 0 = %+v", series[0])
	}
	if !series[0].Time.Equal(base) {
		t.Errorf("bar 0 time = %v, want %v", series[0].Time, base)
	}

	// Bare symbol is normalized to the exchange pair.
	if want := "symbol=BTCUSDT"; !strings.Contains(query, want) {
		t.Errorf("query %q missing %q", query, want)
	}
	if want := "interval=1h"; !strings.Contains(query, want) {
		t.Errorf("query %q missing %q", query, want)
	}
}

func TestBinance_FetchHistory_Paginates(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		switch calls {
		case 1:
			// Full page: two klines at the page size of two.
			fmt.Fprintf(w, "[%s,%s]",
				kline(base.UnixMilli(), 1, 1, 1, 1),
				kline(base.Add(time.Hour).UnixMilli(), 2, 2, 2, 2))
		case 2:
			fmt.Fprintf(w, "[%s]", kline(base.Add(2*time.Hour).UnixMilli(), 3, 3, 3, 3))
		default:
			fmt.Fprint(w, "[]")
		}
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	b.pageSize = 2

	series, err := b.FetchHistory(context.Background(), "BTCUSDT", base, base.Add(3*time.Hour), core.Interval1h)
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 bars across pages, got %d", len(series))
	}
	if series[2].Close != 3 {
		t.Errorf("last bar close = %v, want 3", series[2].Close)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("paged series should validate: %v", err)
	}
}

func TestBinance_FetchHistory_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)

	_, err := b.FetchHistory(context.Background(), "BTCUSDT", time.Now().Add(-time.Hour), time.Now(), core.Interval1h)
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestBinance_FetchHistory_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)

	_, err := b.FetchHistory(context.Background(), "BTCUSDT", time.Now().Add(-time.Hour), time.Now(), core.Interval1h)
	if !errors.Is(err, core.ErrProviderFailed) {
		t.Errorf("expected ErrProviderFailed, got %v", err)
	}
}
