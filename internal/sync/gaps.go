package sync

import (
	"time"

	"candlesync/internal/market"
)

// Gap is a missing stretch of bars: the half-open window [Start, End) between
// two stored bars whose spacing exceeded the timeframe's tolerance. Start is
// the first missing open time, End the next stored one.
type Gap struct {
	Start time.Time
	End   time.Time
}

// DetectGaps scans ascending bar timestamps for spacings strictly greater
// than the timeframe's gap tolerance. Exactly 1.5 bars of spacing is still
// contiguous. Fewer than two timestamps can never contain a gap.
func DetectGaps(timestamps []time.Time, tf market.Timeframe) []Gap {
	if len(timestamps) < 2 {
		return nil
	}
	tolerance := tf.GapTolerance()
	var out []Gap
	for i := 1; i < len(timestamps); i++ {
		prev, next := timestamps[i-1], timestamps[i]
		if next.Sub(prev) > tolerance {
			out = append(out, Gap{Start: prev.Add(tf.Duration()), End: next})
		}
	}
	return out
}
