// Package conn supervises the two unreliable connections the collector
// depends on: the market-data source and the candle store.
package conn

import (
	"context"
	"fmt"
	"time"

	"candlesync/internal/logger"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ProbeFunc actively verifies the connection. It must perform a real round
// trip; a cached "open" flag is exactly what the supervisor exists to distrust.
type ProbeFunc func(ctx context.Context) error

// Supervisor owns the reconnect policy for one connection: bounded attempts
// with a fixed delay in between. It is safe for concurrent use; concurrent
// EnsureConnected calls serialize so only one reconnect sequence runs.
type Supervisor struct {
	name        string
	probe       ProbeFunc
	maxAttempts int
	delay       time.Duration

	sem   chan struct{}
	state State
}

func NewSupervisor(name string, probe ProbeFunc, maxAttempts int, delay time.Duration) *Supervisor {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if delay <= 0 {
		delay = 10 * time.Second
	}
	return &Supervisor{
		name:        name,
		probe:       probe,
		maxAttempts: maxAttempts,
		delay:       delay,
		sem:         make(chan struct{}, 1),
		state:       Disconnected,
	}
}

func (s *Supervisor) State() State {
	s.sem <- struct{}{}
	st := s.state
	<-s.sem
	return st
}

// EnsureConnected probes the connection and, if the probe fails, retries up
// to maxAttempts times with the fixed delay. The probe always runs, even when
// the last known state was connected. Returns the last probe error when every
// attempt is exhausted; the caller skips its unit of work and tries again next
// cycle.
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	err := s.probe(ctx)
	if err == nil {
		s.state = Connected
		return nil
	}
	logger.Warnf("%s connection lost: %v", s.name, err)
	s.state = Connecting

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			s.state = Disconnected
			return ctx.Err()
		case <-time.After(s.delay):
		}
		logger.Infof("%s reconnect attempt %d/%d", s.name, attempt, s.maxAttempts)
		if err = s.probe(ctx); err == nil {
			s.state = Connected
			logger.Infof("%s reconnected", s.name)
			return nil
		}
	}
	s.state = Disconnected
	return fmt.Errorf("%s: reconnect failed after %d attempts: %w", s.name, s.maxAttempts, err)
}
