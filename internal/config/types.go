package config

// Config is the collector's main configuration carrier.
type Config struct {
	App    AppConfig    `toml:"app"`
	Bridge BridgeConfig `toml:"bridge"`
	Store  StoreConfig  `toml:"store"`
	Sync   SyncConfig   `toml:"sync"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// BridgeConfig describes how to reach the MetaTrader HTTP bridge.
type BridgeConfig struct {
	BaseURL        string `toml:"base_url"`
	AuthToken      string `toml:"auth_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// SyncConfig controls which series are collected and how aggressively.
type SyncConfig struct {
	Symbols           []string `toml:"symbols"`
	Timeframes        []string `toml:"timeframes"`
	IntervalSeconds   int      `toml:"interval_seconds"`
	RepairEveryCycles int      `toml:"repair_every_cycles"`
	LookbackDays      int      `toml:"lookback_days"`
	RepairWindowDays  int      `toml:"repair_window_days"`
	OverlapHours      int      `toml:"overlap_hours"`
	LiveCount         int      `toml:"live_count"`
	MaxBarsPerCall    int      `toml:"max_bars_per_call"`
	MaxAttempts       int      `toml:"max_attempts"`
	RetryDelaySeconds int      `toml:"retry_delay_seconds"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Parallel          int      `toml:"parallel"`
}
