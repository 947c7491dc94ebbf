package marketdata

import (
	"context"
	"errors"

	"stage-scanner/internal/model"
)

var (
	// ErrNotFound indicates the symbol has no data at the source.
	ErrNotFound = errors.New("marketdata: symbol not found")
	// ErrRateLimited indicates the data source rejected the request for rate.
	ErrRateLimited = errors.New("marketdata: rate limited")
)

// Fetcher retrieves daily OHLCV history for a symbol over a lookback window
// such as "1y" or "5y".
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol, lookback string) (model.PriceSeries, error)
}
