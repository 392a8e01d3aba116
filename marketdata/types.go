// Package marketdata talks to the brokerage market data API: the tradable
// asset universe, daily bars, latest prices and account equity over REST,
// plus a websocket trade stream feeding the price cache.
package marketdata

import (
	"context"
	"errors"
)

// ErrNoPrice is returned when no price is available for a symbol from either
// the stream cache or the REST fallback.
var ErrNoPrice = errors.New("no price available")

// Asset describes one tradable instrument from the provider
type Asset struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Class    string `json:"class"`
	Status   string `json:"status"`
	Tradable bool   `json:"tradable"`
}

// Bar is one daily OHLCV bar for a symbol
type Bar struct {
	Symbol string
	Date   string // YYYY-MM-DD
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Gateway is the market data surface the scanner and trackers consume
type Gateway interface {
	// TradableAssets returns the active US equity universe
	TradableAssets(ctx context.Context) ([]Asset, error)

	// DailyBars fetches daily bars for a batch of symbols keyed by symbol.
	// Symbols the provider knows nothing about are simply absent from the map.
	DailyBars(ctx context.Context, symbols []string, start, end string) (map[string][]Bar, error)

	// LatestPrice returns the most recent trade price for a symbol.
	// Returns ErrNoPrice when no source has one.
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}
