package store

import (
	"context"
	"time"

	"candlesync/internal/market"
)

// Event is one row of the append-only operational log.
type Event struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Symbol    string         `json:"symbol,omitempty"`
	Timeframe string         `json:"timeframe,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Store persists bars with at-most-once semantics per (symbol, timeframe,
// timestamp). There is exactly one capability interface; callers never branch
// on which backend is behind it.
type Store interface {
	// InsertBars writes bars with insert-or-ignore semantics and returns the
	// number of newly inserted rows. Re-delivery of a stored key is ignored,
	// never updated.
	InsertBars(ctx context.Context, bars []market.Bar) (int, error)

	// LastTimestamp reports the series' high-water mark; ok is false when the
	// series has no stored bars.
	LastTimestamp(ctx context.Context, series market.Series) (ts time.Time, ok bool, err error)

	// Timestamps returns stored bar timestamps in [start, end), ascending.
	Timestamps(ctx context.Context, series market.Series, start, end time.Time) ([]time.Time, error)

	// BarsBetween returns stored bars in [start, end), ascending.
	BarsBetween(ctx context.Context, series market.Series, start, end time.Time) ([]market.Bar, error)

	// LatestBars returns up to limit most recent bars, ascending.
	LatestBars(ctx context.Context, series market.Series, limit int) ([]market.Bar, error)

	CountBars(ctx context.Context, series market.Series) (int64, error)

	LogEvent(ctx context.Context, evt Event) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)

	// Ping actively verifies the connection with a trivial query; a cached
	// "open" flag is not trusted.
	Ping(ctx context.Context) error
	Close() error
}
