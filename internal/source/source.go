package source

import (
	"context"
	"errors"
	"time"

	"candlesync/internal/market"
)

// Error kinds surfaced by Source implementations. Callers dispatch with
// errors.Is; the sync engine's adaptive chunk shrink keys off ErrInvalidRange.
var (
	// ErrInvalidRange means the provider rejected the request shape
	// (too many bars, malformed window), not the connection or the symbol.
	ErrInvalidRange = errors.New("invalid range parameters")

	// ErrNotFound means the symbol does not exist on this account.
	// Permanent for the process lifetime once observed.
	ErrNotFound = errors.New("symbol not found")

	// ErrUnavailable covers transport failures and provider-side outages.
	ErrUnavailable = errors.New("source unavailable")
)

// SymbolInfo is one entry of the provider's symbol directory.
type SymbolInfo struct {
	Name        string
	Description string
}

// Source is the upstream market-data capability. All returned bar timestamps
// are normalized to UTC. Range fetches are half-open: [start, end).
type Source interface {
	Probe(ctx context.Context) error
	Symbols(ctx context.Context) ([]SymbolInfo, error)
	FetchRange(ctx context.Context, nativeSymbol string, tf market.Timeframe, start, end time.Time) ([]market.Bar, error)
	FetchLatest(ctx context.Context, nativeSymbol string, tf market.Timeframe, count int) ([]market.Bar, error)
	Close() error
}
