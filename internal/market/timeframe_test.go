package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("h1")
	require.NoError(t, err)
	assert.Equal(t, "H1", tf.Key)
	assert.Equal(t, 60, tf.Minutes)

	tf, err = ParseTimeframe("  D1 ")
	require.NoError(t, err)
	assert.Equal(t, 1440, tf.Minutes)

	_, err = ParseTimeframe("H2")
	assert.Error(t, err)
	_, err = ParseTimeframe("")
	assert.Error(t, err)
}

func TestSupportedTimeframesOrdered(t *testing.T) {
	tfs := SupportedTimeframes()
	require.Len(t, tfs, 7)
	for i := 1; i < len(tfs); i++ {
		assert.Greater(t, tfs[i].Minutes, tfs[i-1].Minutes)
	}
	assert.Equal(t, "M1", tfs[0].Key)
	assert.Equal(t, "D1", tfs[len(tfs)-1].Key)
}

func TestGapTolerance(t *testing.T) {
	m5, err := ParseTimeframe("M5")
	require.NoError(t, err)
	assert.Equal(t, 450*time.Second, m5.GapTolerance())

	h4, err := ParseTimeframe("H4")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, h4.GapTolerance())
}

func TestSeriesString(t *testing.T) {
	tf, _ := ParseTimeframe("M15")
	s := Series{Symbol: "US30", Timeframe: tf}
	assert.Equal(t, "US30 M15", s.String())
}
