// Package gormstore is the sqlite conformance of store.Store, built on Gorm.
package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"candlesync/internal/market"
	"candlesync/internal/store"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type barModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Symbol        string  `gorm:"column:symbol;uniqueIndex:idx_bars_series_ts,priority:1;index:idx_bars_series,priority:1"`
	Timeframe     string  `gorm:"column:timeframe;uniqueIndex:idx_bars_series_ts,priority:2;index:idx_bars_series,priority:2"`
	Timestamp     int64   `gorm:"column:timestamp;uniqueIndex:idx_bars_series_ts,priority:3;index"`
	Open          float64 `gorm:"column:open"`
	High          float64 `gorm:"column:high"`
	Low           float64 `gorm:"column:low"`
	Close         float64 `gorm:"column:close"`
	Volume        int64   `gorm:"column:volume"`
	CreatedAtUnix int64   `gorm:"column:created_at"`
	UpdatedAtUnix int64   `gorm:"column:updated_at"`
}

func (barModel) TableName() string { return "bars" }

type syncEventModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	TimestampUnix int64          `gorm:"column:timestamp;index"`
	Level         string         `gorm:"column:level;index"`
	Symbol        string         `gorm:"column:symbol"`
	Timeframe     string         `gorm:"column:timeframe"`
	Message       string         `gorm:"column:message"`
	Details       datatypes.JSON `gorm:"column:details;type:TEXT"`
}

func (syncEventModel) TableName() string { return "sync_events" }

// Store implements store.Store on a single sqlite file.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&barModel{}, &syncEventModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep the pool small, the writer is effectively single.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping runs a trivial query. The transport can report a connection as open
// long after it stopped answering, so the probe is always a real round trip.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	var one int
	return s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

func (s *Store) InsertBars(ctx context.Context, bars []market.Bar) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store not initialized")
	}
	if len(bars) == 0 {
		return 0, nil
	}
	now := time.Now().Unix()
	models := make([]barModel, 0, len(bars))
	for _, b := range bars {
		models = append(models, barModel{
			Symbol:        b.Symbol,
			Timeframe:     b.Timeframe,
			Timestamp:     b.Timestamp.UTC().Unix(),
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			Close:         b.Close,
			Volume:        b.Volume,
			CreatedAtUnix: now,
			UpdatedAtUnix: now,
		})
	}
	// Insert-or-ignore on the series key. Never an upsert: a stored bar is
	// immutable, so overlapping re-fetches are safe to replay.
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "timestamp"}},
			DoNothing: true,
		}).
		CreateInBatches(&models, 500)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (s *Store) LastTimestamp(ctx context.Context, series market.Series) (time.Time, bool, error) {
	if s == nil || s.db == nil {
		return time.Time{}, false, fmt.Errorf("gorm store not initialized")
	}
	var last *int64
	err := s.db.WithContext(ctx).Model(&barModel{}).
		Where("symbol = ? AND timeframe = ?", series.Symbol, series.Timeframe.Key).
		Select("MAX(timestamp)").
		Scan(&last).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if last == nil || *last <= 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(*last, 0).UTC(), true, nil
}

func (s *Store) Timestamps(ctx context.Context, series market.Series, start, end time.Time) ([]time.Time, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var raw []int64
	err := s.db.WithContext(ctx).Model(&barModel{}).
		Where("symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp < ?",
			series.Symbol, series.Timeframe.Key, start.UTC().Unix(), end.UTC().Unix()).
		Order("timestamp ASC").
		Pluck("timestamp", &raw).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(raw))
	for _, ts := range raw {
		out = append(out, time.Unix(ts, 0).UTC())
	}
	return out, nil
}

func (s *Store) BarsBetween(ctx context.Context, series market.Series, start, end time.Time) ([]market.Bar, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var models []barModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp < ?",
			series.Symbol, series.Timeframe.Key, start.UTC().Unix(), end.UTC().Unix()).
		Order("timestamp ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return barModelsToBars(models), nil
}

func (s *Store) LatestBars(ctx context.Context, series market.Series, limit int) ([]market.Bar, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 || limit > 2000 {
		limit = 200
	}
	var models []barModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", series.Symbol, series.Timeframe.Key).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	bars := barModelsToBars(models)
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func (s *Store) CountBars(ctx context.Context, series market.Series) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store not initialized")
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&barModel{}).
		Where("symbol = ? AND timeframe = ?", series.Symbol, series.Timeframe.Key).
		Count(&total).Error
	return total, err
}

func (s *Store) LogEvent(ctx context.Context, evt store.Event) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	var details datatypes.JSON
	if len(evt.Details) > 0 {
		raw, err := json.Marshal(evt.Details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		details = datatypes.JSON(raw)
	}
	model := syncEventModel{
		TimestampUnix: evt.Time.UTC().Unix(),
		Level:         strings.ToUpper(strings.TrimSpace(evt.Level)),
		Symbol:        evt.Symbol,
		Timeframe:     evt.Timeframe,
		Message:       evt.Message,
		Details:       details,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]store.Event, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var models []syncEventModel
	err := s.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]store.Event, 0, len(models))
	for _, m := range models {
		evt := store.Event{
			Time:      time.Unix(m.TimestampUnix, 0).UTC(),
			Level:     m.Level,
			Symbol:    m.Symbol,
			Timeframe: m.Timeframe,
			Message:   m.Message,
		}
		if len(m.Details) > 0 {
			_ = json.Unmarshal(m.Details, &evt.Details)
		}
		out = append(out, evt)
	}
	return out, nil
}

func barModelsToBars(models []barModel) []market.Bar {
	out := make([]market.Bar, 0, len(models))
	for _, m := range models {
		out = append(out, market.Bar{
			Symbol:    m.Symbol,
			Timeframe: m.Timeframe,
			Timestamp: time.Unix(m.Timestamp, 0).UTC(),
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
		})
	}
	return out
}
