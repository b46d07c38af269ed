// Package mtbridge talks to a MetaTrader terminal through its HTTP bridge.
// The bridge exposes the terminal's rate history and symbol directory as a
// small REST API; this client normalizes its records into market.Bar.
package mtbridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"candlesync/internal/market"
	"candlesync/internal/source"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL     = "http://127.0.0.1:6542"
	defaultHTTPTimeout = 30 * time.Second
)

// Config describes how to reach the bridge.
type Config struct {
	BaseURL     string
	AuthToken   string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	return c
}

type Client struct {
	cfg    Config
	client *http.Client
}

var _ source.Source = (*Client)(nil)

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	return &Client{
		cfg:    final,
		client: &http.Client{Timeout: final.HTTPTimeout},
	}
}

// Probe checks that the bridge responds and its terminal session is logged in.
func (c *Client) Probe(ctx context.Context) error {
	body, err := c.get(ctx, "/status", nil)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(body, "connected").Bool() {
		return fmt.Errorf("bridge: terminal not logged in: %w", source.ErrUnavailable)
	}
	return nil
}

func (c *Client) Symbols(ctx context.Context) ([]source.SymbolInfo, error) {
	body, err := c.get(ctx, "/symbols", nil)
	if err != nil {
		return nil, err
	}
	rows := gjson.GetBytes(body, "symbols").Array()
	out := make([]source.SymbolInfo, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Get("name").String())
		if name == "" {
			continue
		}
		out = append(out, source.SymbolInfo{
			Name:        name,
			Description: strings.TrimSpace(row.Get("description").String()),
		})
	}
	return out, nil
}

// FetchRange returns bars with open time in [start, end).
func (c *Client) FetchRange(ctx context.Context, nativeSymbol string, tf market.Timeframe, start, end time.Time) ([]market.Bar, error) {
	q := url.Values{}
	q.Set("symbol", nativeSymbol)
	q.Set("timeframe", tf.Key)
	q.Set("from", strconv.FormatInt(start.UTC().Unix(), 10))
	q.Set("to", strconv.FormatInt(end.UTC().Unix(), 10))
	body, err := c.get(ctx, "/rates/range", q)
	if err != nil {
		return nil, err
	}
	return c.parseRates(body, nativeSymbol, tf), nil
}

func (c *Client) FetchLatest(ctx context.Context, nativeSymbol string, tf market.Timeframe, count int) ([]market.Bar, error) {
	if count <= 0 {
		count = 1
	}
	q := url.Values{}
	q.Set("symbol", nativeSymbol)
	q.Set("timeframe", tf.Key)
	q.Set("count", strconv.Itoa(count))
	body, err := c.get(ctx, "/rates/latest", q)
	if err != nil {
		return nil, err
	}
	return c.parseRates(body, nativeSymbol, tf), nil
}

func (c *Client) Close() error { return nil }

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("bridge: bad base url: %w", err)
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: %s: %v: %w", path, err, source.ErrUnavailable)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge: %s: read body: %v: %w", path, err, source.ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(path, resp.StatusCode, body)
	}
	return body, nil
}

// classifyStatus maps bridge failures onto structured error kinds so callers
// never have to match on message text.
func classifyStatus(path string, status int, body []byte) error {
	code := gjson.GetBytes(body, "error").String()
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case code == "invalid_params" || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("bridge: %s: %s: %w", path, msg, source.ErrInvalidRange)
	case code == "symbol_not_found" || status == http.StatusNotFound:
		return fmt.Errorf("bridge: %s: %s: %w", path, msg, source.ErrNotFound)
	default:
		return fmt.Errorf("bridge: %s: status %d: %s: %w", path, status, msg, source.ErrUnavailable)
	}
}

// parseRates converts bridge rate rows into bars. A malformed row is dropped
// on its own; it never discards the rest of the batch.
func (c *Client) parseRates(body []byte, symbol string, tf market.Timeframe) []market.Bar {
	rows := gjson.GetBytes(body, "rates").Array()
	out := make([]market.Bar, 0, len(rows))
	for _, row := range rows {
		ts := row.Get("time").Int()
		if ts <= 0 {
			continue
		}
		out = append(out, market.Bar{
			Symbol:    symbol,
			Timeframe: tf.Key,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      row.Get("open").Float(),
			High:      row.Get("high").Float(),
			Low:       row.Get("low").Float(),
			Close:     row.Get("close").Float(),
			Volume:    row.Get("tick_volume").Int(),
		})
	}
	return out
}
