package config

import (
	"fmt"

	"candlesync/internal/market"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SeriesList expands the symbol and timeframe lists into the full cross
// product of series under management.
func (s SyncConfig) SeriesList() ([]market.Series, error) {
	out := make([]market.Series, 0, len(s.Symbols)*len(s.Timeframes))
	for _, sym := range s.Symbols {
		for _, key := range s.Timeframes {
			tf, err := market.ParseTimeframe(key)
			if err != nil {
				return nil, err
			}
			out = append(out, market.Series{Symbol: sym, Timeframe: tf})
		}
	}
	return out, nil
}
