package glassnode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/provider"
)

func TestGlassnode_ImplementsProvider(t *testing.T) {
	var _ provider.Provider = (*Glassnode)(nil)
}

func TestGlassnode_Name(t *testing.T) {
	g := New("key")
	if g.Name() != "glassnode" {
		t.Errorf("expected 'glassnode', got '%s'", g.Name())
	}
}

func TestGlassnode_FetchHistory(t *testing.T) {
	var query url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		if r.URL.Path != "/v1/metrics/market/price_usd_close" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"t":1704067200,"v":42000.5},{"t":1704153600,"v":43250.0}]`))
	}))
	defer server.Close()

	g := NewWithBaseURL("secret", server.URL)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	series, err := g.FetchHistory(context.Background(), "BTC", start, end, core.Interval24h)
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if query.Get("a") != "BTC" {
		t.Errorf("asset param = %q, want BTC", query.Get("a"))
	}
	if query.Get("i") != "24h" {
		t.Errorf("interval param = %q, want 24h", query.Get("i"))
	}
	if query.Get("s") != "1704067200" {
		t.Errorf("start param = %q, want 1704067200", query.Get("s"))
	}
	if query.Get("u") != "1704240000" {
		t.Errorf("end param = %q, want 1704240000", query.Get("u"))
	}
	if query.Get("api_key") != "secret" {
		t.Errorf("api_key param = %q, want secret", query.Get("api_key"))
	}

	if len(series) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(series))
	}
	if series[0].Close != 42000.5 || series[1].Close != 43250.0 {
		t.Errorf("closes = %v, %v", series[0].Close, series[1].Close)
	}
	if !series[0].Time.Equal(start) {
		t.Errorf("first bar time = %v, want %v", series[0].Time, start)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("fetched series should validate: %v", err)
	}
}

func TestGlassnode_FetchHistory_StripsQuote(t *testing.T) {
	var asset string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		asset = r.URL.Query().Get("a")
		w.Write([]byte(`[{"t":1704067200,"v":1.0}]`))
	}))
	defer server.Close()

	g := NewWithBaseURL("key", server.URL)
	if _, err := g.FetchHistory(context.Background(), "BTCUSDT", time.Now().Add(-time.Hour), time.Now(), core.Interval1h); err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if asset != "BTC" {
		t.Errorf("asset param = %q, want BTC", asset)
	}
}

func TestGlassnode_FetchHistory_UnsupportedInterval(t *testing.T) {
	g := New("key")

	_, err := g.FetchHistory(context.Background(), "BTC", time.Now(), time.Now(), core.Interval("3h"))
	if err == nil {
		t.Error("expected error for unsupported interval")
	}
}

func TestGlassnode_FetchHistory_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	g := NewWithBaseURL("bad-key", server.URL)

	_, err := g.FetchHistory(context.Background(), "BTC", time.Now().Add(-time.Hour), time.Now(), core.Interval1h)
	if !errors.Is(err, core.ErrProviderFailed) {
		t.Errorf("expected ErrProviderFailed, got %v", err)
	}
}

func TestGlassnode_FetchHistory_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	g := NewWithBaseURL("key", server.URL)

	_, err := g.FetchHistory(context.Background(), "BTC", time.Now().Add(-time.Hour), time.Now(), core.Interval1h)
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
