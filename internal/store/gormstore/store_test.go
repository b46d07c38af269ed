package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"candlesync/internal/market"
	"candlesync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSeries(t *testing.T) market.Series {
	t.Helper()
	tf, err := market.ParseTimeframe("H1")
	require.NoError(t, err)
	return market.Series{Symbol: "US30", Timeframe: tf}
}

func makeBars(series market.Series, start time.Time, n int) []market.Bar {
	out := make([]market.Bar, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, market.Bar{
			Symbol:    series.Symbol,
			Timeframe: series.Timeframe.Key,
			Timestamp: start.Add(time.Duration(i) * series.Timeframe.Duration()),
			Open:      1, High: 2, Low: 0.5, Close: 1.5,
			Volume: int64(i),
		})
	}
	return out
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}

func TestInsertBarsIgnoresDuplicates(t *testing.T) {
	s := newTestStore(t)
	series := testSeries(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	inserted, err := s.InsertBars(ctx, makeBars(series, start, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, inserted)

	// Overlapping replay: 5 duplicates, 5 new.
	inserted, err = s.InsertBars(ctx, makeBars(series, start.Add(5*time.Hour), 10))
	require.NoError(t, err)
	assert.Equal(t, 5, inserted)

	count, err := s.CountBars(ctx, series)
	require.NoError(t, err)
	assert.EqualValues(t, 15, count)
}

func TestInsertBarsNeverUpdates(t *testing.T) {
	s := newTestStore(t)
	series := testSeries(t)
	ctx := context.Background()
	ts := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	first := market.Bar{Symbol: series.Symbol, Timeframe: series.Timeframe.Key, Timestamp: ts, Close: 1.5}
	_, err := s.InsertBars(ctx, []market.Bar{first})
	require.NoError(t, err)

	redelivered := first
	redelivered.Close = 99
	inserted, err := s.InsertBars(ctx, []market.Bar{redelivered})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	bars, err := s.BarsBetween(ctx, series, ts, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
}

func TestInsertBarsEmpty(t *testing.T) {
	s := newTestStore(t)
	inserted, err := s.InsertBars(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestLastTimestamp(t *testing.T) {
	s := newTestStore(t)
	series := testSeries(t)
	ctx := context.Background()

	_, ok, err := s.LastTimestamp(ctx, series)
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.InsertBars(ctx, makeBars(series, start, 24))
	require.NoError(t, err)

	last, ok, err := s.LastTimestamp(ctx, series)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start.Add(23*time.Hour), last)

	// Other series are invisible.
	m5, _ := market.ParseTimeframe("M5")
	_, ok, err = s.LastTimestamp(ctx, market.Series{Symbol: "US30", Timeframe: m5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimestampsHalfOpenWindow(t *testing.T) {
	s := newTestStore(t)
	series := testSeries(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.InsertBars(ctx, makeBars(series, start, 10))
	require.NoError(t, err)

	got, err := s.Timestamps(ctx, series, start.Add(2*time.Hour), start.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, start.Add(2*time.Hour), got[0])
	assert.Equal(t, start.Add(4*time.Hour), got[2])
}

func TestLatestBarsAscending(t *testing.T) {
	s := newTestStore(t)
	series := testSeries(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.InsertBars(ctx, makeBars(series, start, 24))
	require.NoError(t, err)

	bars, err := s.LatestBars(ctx, series, 5)
	require.NoError(t, err)
	require.Len(t, bars, 5)
	assert.Equal(t, start.Add(19*time.Hour), bars[0].Timestamp)
	assert.Equal(t, start.Add(23*time.Hour), bars[4].Timestamp)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp))
	}
}

func TestEventLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.LogEvent(ctx, store.Event{
			Time:      time.Date(2026, 4, 1, i, 0, 0, 0, time.UTC),
			Level:     "info",
			Symbol:    "US30",
			Timeframe: "H1",
			Message:   "backfill complete",
			Details:   map[string]any{"inserted": float64(i)},
		})
		require.NoError(t, err)
	}

	events, err := s.RecentEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, time.Date(2026, 4, 1, 2, 0, 0, 0, time.UTC), events[0].Time)
	assert.Equal(t, "INFO", events[0].Level)
	assert.Equal(t, float64(2), events[0].Details["inserted"])
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
