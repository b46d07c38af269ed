// Package app wires configuration into a running collector: store, bridge
// client, supervisors, sync engine, scheduler and the read-only HTTP API.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"candlesync/internal/config"
	"candlesync/internal/conn"
	"candlesync/internal/gateway/mtbridge"
	"candlesync/internal/logger"
	"candlesync/internal/market"
	"candlesync/internal/scheduler"
	"candlesync/internal/source"
	"candlesync/internal/store/gormstore"
	"candlesync/internal/sync"
	httpapi "candlesync/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg    *config.Config
	store  *gormstore.Store
	src    *mtbridge.Client
	runner *scheduler.Runner
	server *httpapi.Server
	series []market.Series
}

// NewApp builds the application without starting it. An unreachable store at
// this point is fatal: there is nothing useful the collector can do without
// somewhere to write.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	series, err := cfg.Sync.SeriesList()
	if err != nil {
		return nil, fmt.Errorf("series config: %w", err)
	}
	logger.Infof("managing %d series: %v symbols x %v timeframes",
		len(series), cfg.Sync.Symbols, cfg.Sync.Timeframes)

	st, err := gormstore.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("store unreachable: %w", err)
	}
	logger.Infof("store ready at %s", cfg.Store.Path)

	src := mtbridge.New(mtbridge.Config{
		BaseURL:     cfg.Bridge.BaseURL,
		AuthToken:   cfg.Bridge.AuthToken,
		HTTPTimeout: time.Duration(cfg.Bridge.TimeoutSeconds) * time.Second,
	})
	resolver := source.NewResolver(src)

	retryDelay := time.Duration(cfg.Sync.RetryDelaySeconds) * time.Second
	sourceConn := conn.NewSupervisor("source", src.Probe, cfg.Sync.MaxAttempts, retryDelay)
	storeConn := conn.NewSupervisor("store", st.Ping, cfg.Sync.MaxAttempts, retryDelay)

	engine := sync.NewEngine(src, resolver, st, sourceConn, storeConn, sync.Options{
		LookbackDays:      cfg.Sync.LookbackDays,
		ResumeOverlap:     time.Duration(cfg.Sync.OverlapHours) * time.Hour,
		LiveCount:         cfg.Sync.LiveCount,
		RepairWindow:      time.Duration(cfg.Sync.RepairWindowDays) * 24 * time.Hour,
		MaxBarsPerCall:    cfg.Sync.MaxBarsPerCall,
		RequestsPerSecond: cfg.Sync.RequestsPerSecond,
	})

	runner := scheduler.NewRunner(engine, st, scheduler.Config{
		Series:      series,
		Interval:    time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
		RepairEvery: cfg.Sync.RepairEveryCycles,
		Parallel:    cfg.Sync.Parallel,
	})

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Store:  st,
		Series: series,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("http server: %w", err)
	}

	return &App{
		cfg:    cfg,
		store:  st,
		src:    src,
		runner: runner,
		server: server,
		series: series,
	}, nil
}

// Run blocks until SIGINT/SIGTERM or a fatal component error, then shuts
// everything down in order: HTTP first, then source, then store.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("http api listening on %s", a.server.Addr())
		return a.server.Start(gctx)
	})
	g.Go(func() error {
		return a.runner.Run(gctx)
	})

	err := g.Wait()
	if closeErr := a.src.Close(); closeErr != nil {
		logger.Warnf("closing source: %v", closeErr)
	}
	if closeErr := a.store.Close(); closeErr != nil {
		logger.Warnf("closing store: %v", closeErr)
	}
	logger.Infof("shutdown complete")
	return err
}
