// Package tradeapi is a thin client for the trading research backend's REST API.
// Response bodies are returned as raw JSON and never reinterpreted.
package tradeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quantdesk-hq/tradelab-client/pkg/httpclient"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000/api/v1"
	// DefaultTimeframe is applied by GetOHLC when timeframe is empty.
	DefaultTimeframe = "1h"

	pathRSI          = "/indicators/rsi"
	pathPrice        = "/price"
	pathRSIStrategy  = "/strategies/rsi-strategy"
	pathStatus       = "/status"
	pathStrategyList = "/strategies/list"
	pathBacktest     = "/strategies/backtest"
	pathATR          = "/indicators/atr"
	pathIndicatorFmt = "/indicators/%s"
)

// Client issues one request per call against a fixed backend base address.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	http             httpclient.Client
	defaultTimeframe string
	log              Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// WithDefaultTimeframe overrides the timeframe GetOHLC uses when none is given.
func WithDefaultTimeframe(tf string) Option {
	return func(c *Client) {
		if tf = strings.TrimSpace(tf); tf != "" {
			c.defaultTimeframe = tf
		}
	}
}

// New builds a Client for baseURL. Empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		defaultTimeframe: DefaultTimeframe,
		log:              noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(baseURL, timeout)
	}
	return c
}

type rsiRequest struct {
	Close  []float64 `json:"close"`
	Period int       `json:"period"`
}

type rsiStrategyRequest struct {
	RSI any `json:"rsi"`
}

type indicatorRequest struct {
	Values []float64 `json:"values"`
	Period int       `json:"period"`
}

type atrRequest struct {
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Period int       `json:"period"`
}

// GetRSI asks the backend to compute RSI over closes with the given period.
func (c *Client) GetRSI(ctx context.Context, closes []float64, period int) (json.RawMessage, error) {
	return c.post(ctx, pathRSI, rsiRequest{Close: orEmpty(closes), Period: period})
}

// GetOHLC fetches the price series for symbol. An empty timeframe means the default ("1h").
func (c *Client) GetOHLC(ctx context.Context, symbol, timeframe string) (json.RawMessage, error) {
	if timeframe == "" {
		timeframe = c.defaultTimeframe
	}
	return c.get(ctx, pathPrice, map[string]string{
		"symbol":    symbol,
		"timeframe": timeframe,
	})
}

// GetRSIStrategy evaluates the backend's RSI strategy on a previously computed RSI result.
// rsi is encoded as-is; pass a json.RawMessage to forward a backend response untouched.
func (c *Client) GetRSIStrategy(ctx context.Context, rsi any) (json.RawMessage, error) {
	return c.post(ctx, pathRSIStrategy, rsiStrategyRequest{RSI: rsi})
}

// Status reports backend health.
func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, pathStatus, nil)
}

// ListStrategies returns the strategy catalogue the backend advertises.
func (c *Client) ListStrategies(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, pathStrategyList, nil)
}

// singleSeries lists the indicators computed from one input series.
var singleSeries = map[string]bool{"ema": true, "sma": true}

// GetIndicator computes a single-series indicator, "ema" or "sma".
// RSI has its own request shape and goes through GetRSI.
func (c *Client) GetIndicator(ctx context.Context, name string, values []float64, period int) (json.RawMessage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !singleSeries[name] {
		return nil, fmt.Errorf("unsupported single-series indicator %q", name)
	}
	return c.post(ctx, fmt.Sprintf(pathIndicatorFmt, name), indicatorRequest{Values: orEmpty(values), Period: period})
}

// GetATR computes the Average True Range over aligned high, low and close series.
// Length mismatches are reported by the backend.
func (c *Client) GetATR(ctx context.Context, high, low, closes []float64, period int) (json.RawMessage, error) {
	return c.post(ctx, pathATR, atrRequest{
		High:   orEmpty(high),
		Low:    orEmpty(low),
		Close:  orEmpty(closes),
		Period: period,
	})
}

// Backtest runs a server-side backtest.
func (c *Client) Backtest(ctx context.Context, req BacktestRequest) (json.RawMessage, error) {
	return c.post(ctx, pathBacktest, req)
}

// orEmpty keeps a nil series encoding as [] rather than null.
func orEmpty(series []float64) []float64 {
	if series == nil {
		return []float64{}
	}
	return series
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.http.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return c.decode(http.MethodGet, path, resp, start)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.http.Post(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return c.decode(http.MethodPost, path, resp, start)
}

// decode turns a transport response into the pass-through JSON body or a typed error.
func (c *Client) decode(method, path string, resp httpclient.Response, start time.Time) (json.RawMessage, error) {
	status := resp.StatusCode()
	c.log.DebugObj("backend request completed", "backend_request", map[string]any{
		"method":     method,
		"path":       path,
		"status":     status,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	body := resp.Body()
	if status < 200 || status > 299 {
		return nil, newStatusError(method, path, status, resp.Header("Content-Type"), body)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("%s %s: %w (%s)", method, path, ErrNotJSON, snippet(body))
	}
	return json.RawMessage(trimmed), nil
}
