package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/provider"
)

const (
	baseURL = "https://api.coingecko.com/api/v3"
)

// Symbol to CoinGecko ID mapping
var symbolToIDMap = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"ADA":  "cardano",
	"DOT":  "polkadot",
	"LINK": "chainlink",
	"LTC":  "litecoin",
}

// CoinGecko implements the Provider interface for the CoinGecko API.
// Granularity is chosen by the API from the requested range, so only the
// daily interval is advertised.
type CoinGecko struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New creates a new CoinGecko provider
func New(apiKey string) *CoinGecko {
	return &CoinGecko{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewWithBaseURL creates a CoinGecko provider with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string) *CoinGecko {
	c := New(apiKey)
	c.baseURL = url
	return c
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

func (c *CoinGecko) Intervals() []core.Interval {
	return []core.Interval{core.Interval24h}
}

// coinID converts an asset symbol to a CoinGecko coin ID
func coinID(symbol string) string {
	base := provider.BaseAsset(symbol)
	if id, ok := symbolToIDMap[base]; ok {
		return id
	}
	return strings.ToLower(base)
}

// FetchHistory fetches OHLC data from CoinGecko. The endpoint takes a day
// count, so the range is rounded up to whole days and capped at a year.
func (c *CoinGecko) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval core.Interval) (core.Series, error) {
	if !provider.Supports(c, interval) {
		return nil, fmt.Errorf("coingecko does not serve interval %q", interval)
	}

	id := coinID(symbol)
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}

	url := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=%d", c.baseURL, id, days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	// CoinGecko returns [[timestamp, open, high, low, close], ...]
	var ohlcData [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&ohlcData); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(ohlcData) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("coingecko returned no data for %s", id))
	}

	series := make(core.Series, 0, len(ohlcData))
	for _, ohlc := range ohlcData {
		if len(ohlc) < 5 {
			continue
		}

		series = append(series, core.Bar{
			Time:  time.UnixMilli(int64(ohlc[0])).UTC(),
			Open:  ohlc[1],
			High:  ohlc[2],
			Low:   ohlc[3],
			Close: ohlc[4],
		})
	}
	return series, nil
}
