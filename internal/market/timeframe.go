package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timeframe is a supported candle interval. Key is the canonical uppercase
// name (M1, H1, ...), Minutes its bar length.
type Timeframe struct {
	Key     string
	Minutes int
}

var supportedTimeframes = map[string]Timeframe{
	"M1":  {Key: "M1", Minutes: 1},
	"M5":  {Key: "M5", Minutes: 5},
	"M15": {Key: "M15", Minutes: 15},
	"M30": {Key: "M30", Minutes: 30},
	"H1":  {Key: "H1", Minutes: 60},
	"H4":  {Key: "H4", Minutes: 240},
	"D1":  {Key: "D1", Minutes: 1440},
}

// ParseTimeframe maps a config string onto a supported timeframe.
func ParseTimeframe(key string) (Timeframe, error) {
	tf, ok := supportedTimeframes[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return Timeframe{}, fmt.Errorf("unsupported timeframe %q", key)
	}
	return tf, nil
}

// SupportedTimeframes returns every known timeframe ordered by bar length.
func SupportedTimeframes() []Timeframe {
	out := make([]Timeframe, 0, len(supportedTimeframes))
	for _, tf := range supportedTimeframes {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes < out[j].Minutes })
	return out
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Minutes) * time.Minute
}

// GapTolerance is the largest spacing between consecutive bars that still
// counts as contiguous. Anything strictly greater is a gap. 1.5 bars absorbs
// ordinary session jitter without swallowing a genuinely missing bar.
func (tf Timeframe) GapTolerance() time.Duration {
	return tf.Duration() * 3 / 2
}

// Series identifies one synchronized stream of bars.
type Series struct {
	Symbol    string
	Timeframe Timeframe
}

func (s Series) String() string {
	return s.Symbol + " " + s.Timeframe.Key
}
