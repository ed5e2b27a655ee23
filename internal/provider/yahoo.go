package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"BarVault/internal/market"
)

// YahooProvider implements Provider using the Yahoo Finance chart API.
type YahooProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooProvider creates a provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooProvider{
		BaseURL: "https://query1.finance.yahoo.com",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				FullExchangeName   string  `json:"fullExchangeName"`
				InstrumentType     string  `json:"instrumentType"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, params url.Values) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.BaseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: empty result set")
	}
	return &chart, nil
}

func chartBars(chart *yahooChart) []market.Bar {
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		// No rows for the range is a normal outcome, not an error.
		return nil
	}
	quote := result.Indicators.Quote[0]
	bars := make([]market.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		// A truncated response may carry fewer quote rows than timestamps.
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, market.Bar{
			Time:   time.Unix(ts, 0).In(market.Reference),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toFloat(quote.Volume[i]),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

// FetchRange fetches bars for [start, end) at the given interval.
func (p *YahooProvider) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))

	chart, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	return chartBars(chart), nil
}

// FetchFullHistory fetches the provider's maximum available history.
func (p *YahooProvider) FetchFullHistory(ctx context.Context, symbol, interval string) ([]market.Bar, error) {
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("range", "max")

	chart, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	return chartBars(chart), nil
}

// FetchMetadata fetches descriptive fields for a symbol from the chart
// meta block.
func (p *YahooProvider) FetchMetadata(ctx context.Context, symbol string) (*market.Metadata, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	chart, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	return &market.Metadata{
		Symbol:             meta.Symbol,
		Currency:           meta.Currency,
		ExchangeName:       meta.ExchangeName,
		FullExchangeName:   meta.FullExchangeName,
		InstrumentType:     meta.InstrumentType,
		RegularMarketPrice: meta.RegularMarketPrice,
		FetchedAt:          market.Now(),
	}, nil
}
