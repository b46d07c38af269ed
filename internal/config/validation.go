package config

import (
	"fmt"
	"net/url"
	"strings"

	"candlesync/internal/market"
)

func validate(c *Config) error {
	if err := c.Bridge.validate(); err != nil {
		return err
	}
	if err := c.Sync.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BridgeConfig) validate() error {
	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("bridge.base_url is not a valid URL: %q", b.BaseURL)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	for _, sym := range s.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("sync.symbols contains an empty entry")
		}
	}
	for _, tf := range s.Timeframes {
		if _, err := market.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("sync.timeframes: %w", err)
		}
	}
	if s.RequestsPerSecond > 100 {
		return fmt.Errorf("sync.requests_per_second must be <= 100")
	}
	return nil
}
