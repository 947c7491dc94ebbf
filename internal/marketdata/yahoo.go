package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stage-scanner/internal/model"
)

// YahooOptions parameterise the Yahoo Finance chart-API fetcher.
type YahooOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo fetches daily bars from the public Yahoo Finance chart API.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a Yahoo fetcher.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries retrieves daily OHLCV bars for the symbol over the lookback
// range (e.g. "5y"). Bars with null fields are dropped.
func (y *Yahoo) FetchSeries(ctx context.Context, symbol, lookback string) (model.PriceSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("marketdata: symbol required")
	}
	if lookback == "" {
		lookback = "5y"
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(lookback))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	ua := strings.TrimSpace(y.opts.UserAgent)
	if ua == "" {
		ua = "Mozilla/5.0"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, symbol)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo: status %d for %s: %s", resp.StatusCode, symbol, strings.TrimSpace(string(body)))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
		}
		return nil, fmt.Errorf("yahoo api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("%w: %s returned no bars", ErrNotFound, symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: missing quote block for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	series := make(model.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo occasionally ships quote arrays shorter than the timestamp
		// list; bound-check every field before trusting the index.
		open := quoteAt(quote.Open, i)
		high := quoteAt(quote.High, i)
		low := quoteAt(quote.Low, i)
		closePx := quoteAt(quote.Close, i)
		if open == nil || high == nil || low == nil || closePx == nil {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		series = append(series, model.PricePoint{
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePx,
			Volume: volume,
		})
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("yahoo series for %s: %w", symbol, err)
	}

	y.logger.Debug().Str("symbol", symbol).Int("bars", len(series)).Msg("series fetched")
	return series, nil
}

func quoteAt(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

var _ Fetcher = (*Yahoo)(nil)
