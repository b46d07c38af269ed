// Package sync implements the candle synchronization engine: chunked
// backfill, gap detection and repair, and live incremental collection.
package sync

import (
	"time"

	"candlesync/internal/market"
)

// minChunkSpan is the floor for adaptive shrinking. Below one day the
// provider's limit is no longer the problem and retrying smaller windows
// just burns the request budget.
const minChunkSpan = 24 * time.Hour

// Range is a half-open [Start, End) time window.
type Range struct {
	Start time.Time
	End   time.Time
}

// ChunkSpan is the widest window whose bar count stays within the provider's
// per-call limit for the given timeframe.
func ChunkSpan(tf market.Timeframe, maxBars int) time.Duration {
	if maxBars <= 0 {
		maxBars = 1
	}
	return time.Duration(maxBars) * tf.Duration()
}

// Chunks splits [start, end) into consecutive windows of at most span.
// The windows cover the input exactly, with no overlap; the last one is
// truncated to end.
func Chunks(start, end time.Time, span time.Duration) []Range {
	if !start.Before(end) || span <= 0 {
		return nil
	}
	var out []Range
	for cursor := start; cursor.Before(end); {
		chunkEnd := cursor.Add(span)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		out = append(out, Range{Start: cursor, End: chunkEnd})
		cursor = chunkEnd
	}
	return out
}

// ShrinkSpan halves the chunk span after the provider rejected the request
// shape. The second return is false once the floor is reached, meaning the
// sub-range should be skipped instead of retried.
func ShrinkSpan(span time.Duration) (time.Duration, bool) {
	if span <= minChunkSpan {
		return minChunkSpan, false
	}
	span /= 2
	if span < minChunkSpan {
		span = minChunkSpan
	}
	return span, true
}
