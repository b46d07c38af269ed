package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"candlesync/internal/conn"
	"candlesync/internal/logger"
	"candlesync/internal/market"
	"candlesync/internal/source"
	"candlesync/internal/store"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	// LookbackDays bounds the first backfill of a series with no stored bars.
	LookbackDays int
	// ResumeOverlap is re-fetched behind the high-water mark on every
	// backfill, so a partially written tail can never leave a hole.
	ResumeOverlap time.Duration
	// LiveCount is how many most-recent bars each live collection pulls.
	LiveCount int
	// RepairWindow bounds how far back gap repair scans.
	RepairWindow time.Duration
	// MaxBarsPerCall is the provider's per-request bar limit.
	MaxBarsPerCall int
	// RequestsPerSecond caps source calls across all operations.
	RequestsPerSecond float64
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = 365
	}
	if o.ResumeOverlap <= 0 {
		o.ResumeOverlap = 24 * time.Hour
	}
	if o.LiveCount <= 0 {
		o.LiveCount = 10
	}
	if o.RepairWindow <= 0 {
		o.RepairWindow = 30 * 24 * time.Hour
	}
	if o.MaxBarsPerCall <= 0 {
		o.MaxBarsPerCall = 50000
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	return o
}

// Result summarizes one engine operation on one series.
type Result struct {
	Fetched  int     `json:"fetched"`
	Inserted int     `json:"inserted"`
	Gaps     int     `json:"gaps"`
	Skipped  []Range `json:"skipped,omitempty"`
}

func (r *Result) add(other Result) {
	r.Fetched += other.Fetched
	r.Inserted += other.Inserted
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// Engine drives all candle movement between the source and the store. It
// holds no per-series state; everything it needs to resume is derived from
// the store, so a restart at any point is safe.
type Engine struct {
	src      source.Source
	resolver *source.Resolver
	store    store.Store

	sourceConn *conn.Supervisor
	storeConn  *conn.Supervisor

	limiter *rate.Limiter
	opts    Options
	nowFn   func() time.Time
}

func NewEngine(src source.Source, resolver *source.Resolver, st store.Store, sourceConn, storeConn *conn.Supervisor, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		src:        src,
		resolver:   resolver,
		store:      st,
		sourceConn: sourceConn,
		storeConn:  storeConn,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:       opts,
		nowFn:      time.Now,
	}
}

// Backfill pulls everything from the series' resume point up to now in
// provider-sized chunks. The resume point is the stored high-water mark minus
// the overlap, or now minus the lookback for a fresh series.
func (e *Engine) Backfill(ctx context.Context, series market.Series) (Result, error) {
	var res Result
	if err := e.ensureReady(ctx); err != nil {
		return res, err
	}
	native, err := e.resolver.Resolve(ctx, series.Symbol)
	if err != nil {
		return res, fmt.Errorf("backfill %s: %w", series, err)
	}

	now := e.nowFn().UTC()
	start := now.AddDate(0, 0, -e.opts.LookbackDays)
	last, ok, err := e.store.LastTimestamp(ctx, series)
	if err != nil {
		return res, fmt.Errorf("backfill %s: high-water mark: %w", series, err)
	}
	if ok {
		start = last.Add(-e.opts.ResumeOverlap)
	}
	if !start.Before(now) {
		return res, nil
	}

	run := shortRunID()
	logger.Infof("[%s] backfill %s: %s .. %s", run, series, start.Format(time.RFC3339), now.Format(time.RFC3339))
	res, err = e.fetchRange(ctx, series, native, start, now)
	if err != nil {
		return res, fmt.Errorf("backfill %s: %w", series, err)
	}
	logger.Infof("[%s] backfill %s: fetched=%d inserted=%d skipped=%d", run, series, res.Fetched, res.Inserted, len(res.Skipped))
	e.logEvent(ctx, series, "INFO", "backfill complete", map[string]any{
		"run":      run,
		"fetched":  res.Fetched,
		"inserted": res.Inserted,
		"skipped":  len(res.Skipped),
		"from":     start.Unix(),
		"to":       now.Unix(),
	})
	return res, nil
}

// RepairGaps scans the repair window for missing stretches and re-fetches
// each one. A gap that fails to fetch is logged and left for the next pass;
// it never aborts the remaining gaps.
func (e *Engine) RepairGaps(ctx context.Context, series market.Series) (Result, error) {
	var res Result
	if err := e.ensureReady(ctx); err != nil {
		return res, err
	}
	native, err := e.resolver.Resolve(ctx, series.Symbol)
	if err != nil {
		return res, fmt.Errorf("repair %s: %w", series, err)
	}

	// The window anchors at the high-water mark, not the wall clock, so a
	// stale series still gets its recent history scanned.
	high, ok, err := e.store.LastTimestamp(ctx, series)
	if err != nil {
		return res, fmt.Errorf("repair %s: high-water mark: %w", series, err)
	}
	if !ok {
		return res, nil
	}
	windowStart := high.Add(-e.opts.RepairWindow)
	timestamps, err := e.store.Timestamps(ctx, series, windowStart, high.Add(series.Timeframe.Duration()))
	if err != nil {
		return res, fmt.Errorf("repair %s: load timestamps: %w", series, err)
	}
	gaps := DetectGaps(timestamps, series.Timeframe)
	res.Gaps = len(gaps)
	if len(gaps) == 0 {
		return res, nil
	}

	run := shortRunID()
	logger.Warnf("[%s] repair %s: %d gap(s) in the last %s", run, series, len(gaps), e.opts.RepairWindow)
	for _, gap := range gaps {
		part, err := e.fetchRange(ctx, series, native, gap.Start, gap.End)
		res.add(part)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Errorf("[%s] repair %s: gap %s .. %s: %v", run, series,
				gap.Start.Format(time.RFC3339), gap.End.Format(time.RFC3339), err)
		}
	}
	logger.Infof("[%s] repair %s: gaps=%d fetched=%d inserted=%d", run, series, res.Gaps, res.Fetched, res.Inserted)
	e.logEvent(ctx, series, "WARN", "gap repair complete", map[string]any{
		"run":      run,
		"gaps":     res.Gaps,
		"fetched":  res.Fetched,
		"inserted": res.Inserted,
	})
	return res, nil
}

// CollectLive pulls the most recent bars and lets the store drop everything
// already present. The small fixed count plus insert-or-ignore keeps the tail
// of the series current without tracking which bar is still forming.
func (e *Engine) CollectLive(ctx context.Context, series market.Series) (Result, error) {
	var res Result
	if err := e.ensureReady(ctx); err != nil {
		return res, err
	}
	native, err := e.resolver.Resolve(ctx, series.Symbol)
	if err != nil {
		return res, fmt.Errorf("collect %s: %w", series, err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return res, err
	}
	bars, err := e.src.FetchLatest(ctx, native, series.Timeframe, e.opts.LiveCount)
	if err != nil {
		return res, fmt.Errorf("collect %s: %w", series, err)
	}
	relabel(bars, series)
	inserted, err := e.store.InsertBars(ctx, bars)
	if err != nil {
		return res, fmt.Errorf("collect %s: store: %w", series, err)
	}
	res.Fetched = len(bars)
	res.Inserted = inserted
	if inserted > 0 {
		logger.Debugf("collect %s: fetched=%d inserted=%d", series, res.Fetched, inserted)
		e.logEvent(ctx, series, "INFO", "live bars collected", map[string]any{
			"run":      shortRunID(),
			"fetched":  res.Fetched,
			"inserted": inserted,
		})
	}
	return res, nil
}

// fetchRange walks [start, end) in chunks sized to the provider's limit.
// When the provider rejects a window as too large the span is halved and the
// same cursor retried; the shrunk span sticks for the rest of the walk. At
// the one-day floor the sub-range is skipped with a warning instead.
func (e *Engine) fetchRange(ctx context.Context, series market.Series, native string, start, end time.Time) (Result, error) {
	var res Result
	span := ChunkSpan(series.Timeframe, e.opts.MaxBarsPerCall)
	cursor := start
	for cursor.Before(end) {
		chunkEnd := cursor.Add(span)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return res, err
		}
		bars, err := e.src.FetchRange(ctx, native, series.Timeframe, cursor, chunkEnd)
		if errors.Is(err, source.ErrInvalidRange) {
			shrunk, ok := ShrinkSpan(span)
			span = shrunk
			if !ok {
				logger.Warnf("fetch %s: provider rejected %s .. %s at minimum span, skipping", series,
					cursor.Format(time.RFC3339), chunkEnd.Format(time.RFC3339))
				res.Skipped = append(res.Skipped, Range{Start: cursor, End: chunkEnd})
				cursor = chunkEnd
			}
			continue
		}
		if err != nil {
			return res, err
		}
		relabel(bars, series)
		inserted, err := e.store.InsertBars(ctx, bars)
		if err != nil {
			return res, fmt.Errorf("store: %w", err)
		}
		res.Fetched += len(bars)
		res.Inserted += inserted
		cursor = chunkEnd
	}
	return res, nil
}

// ensureReady verifies both connections before an operation touches them.
// The store comes first: without it there is nowhere to put fetched bars.
func (e *Engine) ensureReady(ctx context.Context) error {
	if e.storeConn != nil {
		if err := e.storeConn.EnsureConnected(ctx); err != nil {
			return err
		}
	}
	if e.sourceConn != nil {
		if err := e.sourceConn.EnsureConnected(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) logEvent(ctx context.Context, series market.Series, level, msg string, details map[string]any) {
	evt := store.Event{
		Time:      e.nowFn().UTC(),
		Level:     level,
		Symbol:    series.Symbol,
		Timeframe: series.Timeframe.Key,
		Message:   msg,
		Details:   details,
	}
	if err := e.store.LogEvent(ctx, evt); err != nil {
		logger.Warnf("event log write failed: %v", err)
	}
}

// relabel stamps fetched bars with the user-facing series identity. The
// provider's native symbol never leaks into storage.
func relabel(bars []market.Bar, series market.Series) {
	for i := range bars {
		bars[i].Symbol = series.Symbol
		bars[i].Timeframe = series.Timeframe.Key
	}
}

func shortRunID() string {
	return uuid.NewString()[:8]
}
