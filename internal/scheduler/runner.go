// Package scheduler owns the collection loop: one initial backfill pass,
// then periodic live collection with gap repair every few cycles.
package scheduler

import (
	"context"
	"time"

	"candlesync/internal/logger"
	"candlesync/internal/market"
	"candlesync/internal/store"
	"candlesync/internal/sync"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	// Series is every (symbol, timeframe) pair under management.
	Series []market.Series
	// Interval separates collection cycles.
	Interval time.Duration
	// RepairEvery runs gap repair on every Nth cycle.
	RepairEvery int
	// Parallel bounds how many series the initial pass works on at once.
	Parallel int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.RepairEvery <= 0 {
		c.RepairEvery = 10
	}
	if c.Parallel <= 0 {
		c.Parallel = 1
	}
	return c
}

type Runner struct {
	engine *sync.Engine
	store  store.Store
	cfg    Config
}

func NewRunner(engine *sync.Engine, st store.Store, cfg Config) *Runner {
	return &Runner{engine: engine, store: st, cfg: cfg.withDefaults()}
}

// Run blocks until ctx is canceled. A failing series is logged and retried
// on the next cycle; nothing a single series does can stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.initialPass(ctx)

	cycle := 0
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler: shutting down after %d cycle(s)", cycle)
			return nil
		case <-time.After(r.cfg.Interval):
		}
		cycle++
		started := time.Now()
		for _, series := range r.cfg.Series {
			if ctx.Err() != nil {
				return nil
			}
			if _, err := r.engine.CollectLive(ctx, series); err != nil {
				logger.Errorf("cycle %d: collect %s: %v", cycle, series, err)
			}
		}
		if cycle%r.cfg.RepairEvery == 0 {
			for _, series := range r.cfg.Series {
				if ctx.Err() != nil {
					return nil
				}
				if _, err := r.engine.RepairGaps(ctx, series); err != nil {
					logger.Errorf("cycle %d: repair %s: %v", cycle, series, err)
				}
			}
		}
		logger.Debugf("cycle %d done in %s", cycle, time.Since(started).Round(time.Millisecond))
	}
}

// initialPass backfills every series up to now and repairs its recent gaps,
// with bounded parallelism. Errors are logged per series; the pass always
// completes so the live loop can start.
func (r *Runner) initialPass(ctx context.Context) {
	logger.Infof("initial sync: %d series", len(r.cfg.Series))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)
	for _, series := range r.cfg.Series {
		series := series
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if count, err := r.store.CountBars(gctx, series); err == nil {
				logger.Infof("%s: %d bar(s) stored", series, count)
			}
			if _, err := r.engine.Backfill(gctx, series); err != nil {
				logger.Errorf("initial sync: backfill %s: %v", series, err)
				return nil
			}
			if _, err := r.engine.RepairGaps(gctx, series); err != nil {
				logger.Errorf("initial sync: repair %s: %v", series, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	logger.Infof("initial sync complete")
}
