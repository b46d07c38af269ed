// Package httpapi exposes the collected series over a small read-only API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"candlesync/internal/logger"
	"candlesync/internal/market"
	"candlesync/internal/store"

	"github.com/gin-gonic/gin"
)

// Server serves health, series inventory, candle and event queries.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the read-only API's dependencies.
type ServerConfig struct {
	Addr   string
	Store  store.Store
	Series []market.Series
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("http server requires a store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		if err := cfg.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{store: cfg.Store, series: cfg.Series}
	api := router.Group("/api")
	api.GET("/series", h.handleSeries)
	api.GET("/candles", h.handleCandles)
	api.GET("/events", h.handleEvents)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type handlers struct {
	store  store.Store
	series []market.Series
}

type seriesStatus struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"timeframe"`
	Count     int64      `json:"count"`
	Last      *time.Time `json:"last,omitempty"`
}

func (h *handlers) handleSeries(c *gin.Context) {
	ctx := c.Request.Context()
	out := make([]seriesStatus, 0, len(h.series))
	for _, s := range h.series {
		count, err := h.store.CountBars(ctx, s)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		status := seriesStatus{Symbol: s.Symbol, Timeframe: s.Timeframe.Key, Count: count}
		if last, ok, err := h.store.LastTimestamp(ctx, s); err == nil && ok {
			status.Last = &last
		}
		out = append(out, status)
	}
	c.JSON(http.StatusOK, gin.H{"series": out})
}

func (h *handlers) handleCandles(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	tf, err := market.ParseTimeframe(c.DefaultQuery("tf", "H1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	series := market.Series{Symbol: symbol, Timeframe: tf}
	limit := parseIntQuery(c, "limit", 200)

	ctx := c.Request.Context()
	start, hasStart := parseTimeQuery(c, "start")
	end, hasEnd := parseTimeQuery(c, "end")
	var bars []market.Bar
	if hasStart {
		if !hasEnd {
			end = time.Now().UTC()
		}
		bars, err = h.store.BarsBetween(ctx, series, start, end)
		if err == nil && limit > 0 && len(bars) > limit {
			bars = bars[len(bars)-limit:]
		}
	} else {
		bars, err = h.store.LatestBars(ctx, series, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "timeframe": tf.Key, "candles": bars})
}

func (h *handlers) handleEvents(c *gin.Context) {
	events, err := h.store.RecentEvents(c.Request.Context(), parseIntQuery(c, "limit", 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// parseTimeQuery accepts unix seconds or RFC 3339.
func parseTimeQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, false
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
