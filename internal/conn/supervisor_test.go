package conn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureConnectedHealthy(t *testing.T) {
	calls := 0
	s := NewSupervisor("test", func(ctx context.Context) error {
		calls++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, s.EnsureConnected(context.Background()))
	assert.Equal(t, Connected, s.State())
	assert.Equal(t, 1, calls)

	// The probe runs again even though the last state was connected.
	require.NoError(t, s.EnsureConnected(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestEnsureConnectedRecovers(t *testing.T) {
	calls := 0
	s := NewSupervisor("test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("down")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, s.EnsureConnected(context.Background()))
	assert.Equal(t, Connected, s.State())
	assert.Equal(t, 3, calls)
}

func TestEnsureConnectedExhaustsAttempts(t *testing.T) {
	probeErr := errors.New("still down")
	calls := 0
	s := NewSupervisor("test", func(ctx context.Context) error {
		calls++
		return probeErr
	}, 3, time.Millisecond)

	err := s.EnsureConnected(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, probeErr)
	assert.Equal(t, Disconnected, s.State())
	// Initial probe plus three retries.
	assert.Equal(t, 4, calls)
}

func TestEnsureConnectedCanceled(t *testing.T) {
	s := NewSupervisor("test", func(ctx context.Context) error {
		return errors.New("down")
	}, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.EnsureConnected(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
}
