// Package market holds the core candle domain types shared by the source,
// store and sync layers.
package market

import "time"

// Bar is one OHLCV candle. Timestamp is the bar's open time, always UTC.
// A bar is immutable once stored; re-delivery of the same (Symbol, Timeframe,
// Timestamp) key is ignored by the store, never merged.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}
