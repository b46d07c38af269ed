package source

import (
	"context"
	"testing"
	"time"

	"candlesync/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	symbols  []SymbolInfo
	err      error
	dirCalls int
}

func (f *fakeDirectory) Probe(ctx context.Context) error { return nil }

func (f *fakeDirectory) Symbols(ctx context.Context) ([]SymbolInfo, error) {
	f.dirCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.symbols, nil
}

func (f *fakeDirectory) FetchRange(ctx context.Context, nativeSymbol string, tf market.Timeframe, start, end time.Time) ([]market.Bar, error) {
	return nil, nil
}

func (f *fakeDirectory) FetchLatest(ctx context.Context, nativeSymbol string, tf market.Timeframe, count int) ([]market.Bar, error) {
	return nil, nil
}

func (f *fakeDirectory) Close() error { return nil }

func TestResolveExactMatch(t *testing.T) {
	src := &fakeDirectory{symbols: []SymbolInfo{{Name: "US30"}, {Name: "EURUSD"}}}
	r := NewResolver(src)

	native, err := r.Resolve(context.Background(), "us30")
	require.NoError(t, err)
	assert.Equal(t, "US30", native)
}

func TestResolvePrefixPrefersShortest(t *testing.T) {
	src := &fakeDirectory{symbols: []SymbolInfo{
		{Name: "US30.cash.pro"},
		{Name: "US30.cash"},
	}}
	r := NewResolver(src)

	native, err := r.Resolve(context.Background(), "US30")
	require.NoError(t, err)
	assert.Equal(t, "US30.cash", native)
}

func TestResolveSubstring(t *testing.T) {
	src := &fakeDirectory{symbols: []SymbolInfo{{Name: "CFD_US30_X"}}}
	r := NewResolver(src)

	native, err := r.Resolve(context.Background(), "US30")
	require.NoError(t, err)
	assert.Equal(t, "CFD_US30_X", native)
}

func TestResolveAliasTier(t *testing.T) {
	src := &fakeDirectory{symbols: []SymbolInfo{{Name: "NAS100"}, {Name: "GER40"}}}
	r := NewResolver(src)

	native, err := r.Resolve(context.Background(), "USTech")
	require.NoError(t, err)
	assert.Equal(t, "NAS100", native)
}

func TestResolveCachesHitsAndMisses(t *testing.T) {
	src := &fakeDirectory{symbols: []SymbolInfo{{Name: "US30"}}}
	r := NewResolver(src)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "US30")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "US30")
	require.NoError(t, err)

	_, err = r.Resolve(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Resolve(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	// One directory load serves every lookup for the process lifetime.
	assert.Equal(t, 1, src.dirCalls)
}

func TestResolveDoesNotCacheConnectivityFailures(t *testing.T) {
	src := &fakeDirectory{err: ErrUnavailable}
	r := NewResolver(src)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "US30")
	assert.ErrorIs(t, err, ErrUnavailable)

	// Once the directory is reachable again the same symbol resolves.
	src.err = nil
	src.symbols = []SymbolInfo{{Name: "US30"}}
	native, err := r.Resolve(ctx, "US30")
	require.NoError(t, err)
	assert.Equal(t, "US30", native)
}

func TestResolveEmptySymbol(t *testing.T) {
	r := NewResolver(&fakeDirectory{})
	_, err := r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}
