package model

// Asset names a tracked market series. The set is fixed.
type Asset string

const (
	Silver   Asset = "Silver"
	Gold     Asset = "Gold"
	Bitcoin  Asset = "Bitcoin"
	USDIndex Asset = "USD_Index"
)

// Assets lists every tracked asset in display order.
var Assets = []Asset{Silver, Gold, Bitcoin, USDIndex}

// Tickers maps each asset to its Yahoo Finance symbol.
var Tickers = map[Asset]string{
	Silver:   "SLV",
	Gold:     "GC=F",
	Bitcoin:  "BTC-USD",
	USDIndex: "DX-Y.NYB",
}

// Valid reports whether a is one of the tracked assets.
func (a Asset) Valid() bool {
	_, ok := Tickers[a]
	return ok
}

// PriceBar is one cleaned OHLC observation. Time is Unix seconds.
type PriceBar struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// RawBar is a price record as delivered by upstream. Values may be numbers,
// numeric strings or missing; the sanitizer coerces them. JSON keys match
// case-insensitively, so both "Open" and "open" land in Open.
type RawBar struct {
	Time     any `json:"time,omitempty"`
	Datetime any `json:"Datetime,omitempty"`
	Date     any `json:"Date,omitempty"`
	Open     any `json:"Open"`
	High     any `json:"High"`
	Low      any `json:"Low"`
	Close    any `json:"Close"`
	Volume   any `json:"Volume,omitempty"`
}

// TimeValue returns the first non-nil of time, Datetime and Date.
func (b RawBar) TimeValue() any {
	switch {
	case b.Time != nil:
		return b.Time
	case b.Datetime != nil:
		return b.Datetime
	default:
		return b.Date
	}
}

// MarketData holds the raw series of every asset.
type MarketData map[Asset][]RawBar
