package glassnode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/provider"
)

const (
	baseURL = "https://api.glassnode.com"

	// Close-price metric endpoint; one point per interval.
	historyPath = "/v1/metrics/market/price_usd_close"
)

// Glassnode implements the Provider interface for the Glassnode metrics API
type Glassnode struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New creates a new Glassnode provider
func New(apiKey string) *Glassnode {
	return &Glassnode{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewWithBaseURL creates a Glassnode provider with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string) *Glassnode {
	g := New(apiKey)
	g.baseURL = url
	return g
}

func (g *Glassnode) Name() string {
	return "glassnode"
}

// Intervals lists the resolutions the metrics API serves.
func (g *Glassnode) Intervals() []core.Interval {
	return []core.Interval{core.Interval10m, core.Interval1h, core.Interval24h, core.Interval1w}
}

// FetchHistory fetches close prices from Glassnode. The response carries one
// {t, v} point per interval; bars are close-only.
func (g *Glassnode) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval core.Interval) (core.Series, error) {
	if !provider.Supports(g, interval) {
		return nil, fmt.Errorf("glassnode does not serve interval %q", interval)
	}

	params := url.Values{}
	params.Set("a", provider.BaseAsset(symbol))
	params.Set("s", strconv.FormatInt(start.Unix(), 10))
	params.Set("u", strconv.FormatInt(end.Unix(), 10))
	params.Set("i", string(interval))
	params.Set("api_key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+historyPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var points []point
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(points) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("glassnode returned no points for %s", symbol))
	}

	series := make(core.Series, 0, len(points))
	for _, p := range points {
		series = append(series, core.Bar{
			Time:  time.Unix(p.T, 0).UTC(),
			Close: p.V,
		})
	}
	return series, nil
}

// Glassnode API response type
type point struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}
