package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/provider"
)

const (
	baseURL = "https://api.binance.com"

	// Klines per request; responses this long trigger another page.
	pageSize = 1000
)

// Binance implements the Provider interface for the Binance exchange
type Binance struct {
	client   *http.Client
	baseURL  string
	pageSize int
}

// New creates a new Binance provider
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  baseURL,
		pageSize: pageSize,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// Intervals lists the resolutions with a Binance kline equivalent. The
// exchange has no 10m granularity.
func (b *Binance) Intervals() []core.Interval {
	return []core.Interval{core.Interval1h, core.Interval24h, core.Interval1w}
}

// FetchHistory fetches OHLC klines from Binance, following full pages until
// the range is covered.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval core.Interval) (core.Series, error) {
	binanceInterval, err := toInterval(interval)
	if err != nil {
		return nil, err
	}
	pair := provider.Pair(symbol, "USDT")

	series := make(core.Series, 0, b.pageSize)
	from := start.UnixMilli()
	until := end.UnixMilli()

	for from < until {
		klines, err := b.fetchPage(ctx, pair, binanceInterval, from, until)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			if len(k) < 6 {
				continue
			}

			openTime, _ := k[0].(float64)
			openStr, _ := k[1].(string)
			highStr, _ := k[2].(string)
			lowStr, _ := k[3].(string)
			closeStr, _ := k[4].(string)

			open, _ := strconv.ParseFloat(openStr, 64)
			high, _ := strconv.ParseFloat(highStr, 64)
			low, _ := strconv.ParseFloat(lowStr, 64)
			close, _ := strconv.ParseFloat(closeStr, 64)

			series = append(series, core.Bar{
				Time:  time.UnixMilli(int64(openTime)).UTC(),
				Open:  open,
				High:  high,
				Low:   low,
				Close: close,
			})
			from = int64(openTime) + 1
		}

		if len(klines) < b.pageSize {
			break
		}
	}

	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("binance returned no klines for %s", pair))
	}
	return series, nil
}

func (b *Binance) fetchPage(ctx context.Context, pair, interval string, from, until int64) ([][]any, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		b.baseURL, pair, interval, from, until, b.pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return klines, nil
}

func toInterval(interval core.Interval) (string, error) {
	switch interval {
	case core.Interval1h:
		return "1h", nil
	case core.Interval24h:
		return "1d", nil
	case core.Interval1w:
		return "1w", nil
	default:
		return "", fmt.Errorf("binance does not serve interval %q", interval)
	}
}
