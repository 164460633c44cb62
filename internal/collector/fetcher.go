package collector

import (
	"context"

	"SilverReport/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns chronological bars for ticker at the given bar
	// interval (e.g. "1h") over the lookback range (e.g. "7d").
	FetchBars(ctx context.Context, ticker, interval, rng string) ([]model.RawBar, error)
	Name() string
}
