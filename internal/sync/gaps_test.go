package sync

import (
	"testing"
	"time"

	"candlesync/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectGapsTooFewPoints(t *testing.T) {
	h1, _ := market.ParseTimeframe("H1")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, DetectGaps(nil, h1))
	assert.Nil(t, DetectGaps([]time.Time{base}, h1))
}

func TestDetectGapsToleranceBoundary(t *testing.T) {
	h1, _ := market.ParseTimeframe("H1")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Exactly 1.5 bars of spacing is still contiguous.
	assert.Empty(t, DetectGaps([]time.Time{base, base.Add(90 * time.Minute)}, h1))

	// One second past the tolerance is a gap.
	gaps := DetectGaps([]time.Time{base, base.Add(90*time.Minute + time.Second)}, h1)
	require.Len(t, gaps, 1)
	assert.Equal(t, base.Add(time.Hour), gaps[0].Start)
	assert.Equal(t, base.Add(90*time.Minute+time.Second), gaps[0].End)
}

func TestDetectGapsMultiple(t *testing.T) {
	m5, _ := market.ParseTimeframe("M5")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		base,
		base.Add(5 * time.Minute),
		base.Add(30 * time.Minute), // 25m jump
		base.Add(35 * time.Minute),
		base.Add(2 * time.Hour), // 85m jump
	}
	gaps := DetectGaps(timestamps, m5)
	require.Len(t, gaps, 2)
	assert.Equal(t, base.Add(10*time.Minute), gaps[0].Start)
	assert.Equal(t, base.Add(30*time.Minute), gaps[0].End)
	assert.Equal(t, base.Add(40*time.Minute), gaps[1].Start)
	assert.Equal(t, base.Add(2*time.Hour), gaps[1].End)
}
