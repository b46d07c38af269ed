package config

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppLogPath  = "data/logs/candlesync.log"

	defaultBridgeBaseURL = "http://127.0.0.1:6542"
	defaultBridgeTimeout = 30

	defaultStorePath = "data/candles.db"

	defaultSyncInterval       = 60
	defaultSyncRepairEvery    = 10
	defaultSyncLookbackDays   = 365
	defaultSyncRepairWindow   = 30
	defaultSyncOverlapHours   = 24
	defaultSyncLiveCount      = 10
	defaultSyncMaxBarsPerCall = 50000
	defaultSyncMaxAttempts    = 5
	defaultSyncRetryDelay     = 10
	defaultSyncRPS            = 5.0
	defaultSyncParallel       = 1
)

var (
	defaultSyncSymbols    = []string{"US30", "USTech"}
	defaultSyncTimeframes = []string{"M1", "M5", "M15", "M30", "H1", "H4", "D1"}
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Bridge.applyDefaults()
	c.Store.applyDefaults()
	c.Sync.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
	if a.LogPath == "" {
		a.LogPath = defaultAppLogPath
	}
}

func (b *BridgeConfig) applyDefaults() {
	if b.BaseURL == "" {
		b.BaseURL = defaultBridgeBaseURL
	}
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = defaultBridgeTimeout
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.Path == "" {
		s.Path = defaultStorePath
	}
}

func (s *SyncConfig) applyDefaults() {
	if len(s.Symbols) == 0 {
		s.Symbols = append([]string(nil), defaultSyncSymbols...)
	}
	if len(s.Timeframes) == 0 {
		s.Timeframes = append([]string(nil), defaultSyncTimeframes...)
	}
	if s.IntervalSeconds <= 0 {
		s.IntervalSeconds = defaultSyncInterval
	}
	if s.RepairEveryCycles <= 0 {
		s.RepairEveryCycles = defaultSyncRepairEvery
	}
	if s.LookbackDays <= 0 {
		s.LookbackDays = defaultSyncLookbackDays
	}
	if s.RepairWindowDays <= 0 {
		s.RepairWindowDays = defaultSyncRepairWindow
	}
	if s.OverlapHours <= 0 {
		s.OverlapHours = defaultSyncOverlapHours
	}
	if s.LiveCount <= 0 {
		s.LiveCount = defaultSyncLiveCount
	}
	if s.MaxBarsPerCall <= 0 {
		s.MaxBarsPerCall = defaultSyncMaxBarsPerCall
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaultSyncMaxAttempts
	}
	if s.RetryDelaySeconds <= 0 {
		s.RetryDelaySeconds = defaultSyncRetryDelay
	}
	if s.RequestsPerSecond <= 0 {
		s.RequestsPerSecond = defaultSyncRPS
	}
	if s.Parallel <= 0 {
		s.Parallel = defaultSyncParallel
	}
}
