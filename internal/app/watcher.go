package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quantdesk-hq/tradelab-client/internal/domain"
	"github.com/quantdesk-hq/tradelab-client/internal/logger"
	"github.com/quantdesk-hq/tradelab-client/pkg/sinks"
)

// Backend is the subset of the trade API the watch loop chains together.
type Backend interface {
	GetOHLC(ctx context.Context, symbol, timeframe string) (json.RawMessage, error)
	GetRSI(ctx context.Context, closes []float64, period int) (json.RawMessage, error)
	GetRSIStrategy(ctx context.Context, rsi any) (json.RawMessage, error)
}

// EventPublisher delivers strategy results downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt sinks.Event) (int, error)
}

// WatchOptions controls what the watcher polls and how often.
type WatchOptions struct {
	Symbols   []string
	Timeframe string
	RSIPeriod int
	Interval  time.Duration
}

// Watcher periodically runs price -> RSI -> strategy for each symbol and
// forwards strategy results that changed since the previous pass.
type Watcher struct {
	backend   Backend
	publisher EventPublisher
	opts      WatchOptions
	log       logger.Logger
	last      map[string][sha256.Size]byte
}

// NewWatcher validates opts and builds a Watcher.
func NewWatcher(opts WatchOptions, backend Backend, publisher EventPublisher, log logger.Logger) (*Watcher, error) {
	if backend == nil || publisher == nil {
		return nil, errors.New("watcher requires a backend and a publisher")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	symbols := make([]string, 0, len(opts.Symbols))
	for _, s := range opts.Symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil, errors.New("no symbols to watch")
	}
	if opts.RSIPeriod <= 0 {
		return nil, fmt.Errorf("invalid rsi period %d", opts.RSIPeriod)
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("invalid watch interval %v", opts.Interval)
	}
	opts.Symbols = symbols

	return &Watcher{
		backend:   backend,
		publisher: publisher,
		opts:      opts,
		log:       log,
		last:      make(map[string][sha256.Size]byte, len(symbols)),
	}, nil
}

// Run executes a pass immediately and then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"symbols":    w.opts.Symbols,
		"timeframe":  w.opts.Timeframe,
		"rsi_period": w.opts.RSIPeriod,
		"interval":   w.opts.Interval.String(),
	})

	if _, err := w.RunOnce(ctx); err != nil {
		w.log.ErrorObj("initial watch pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watch loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled watch pass failed", "error", err.Error())
			}
		}
	}
}

// RunOnce processes every symbol once and returns how many events were published.
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	var errs []error
	published := 0

	for _, symbol := range w.opts.Symbols {
		if ctx.Err() != nil {
			break
		}
		sent, err := w.processSymbol(ctx, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("symbol %s: %w", symbol, err))
			w.log.ErrorObj("symbol pass failed", "symbol_error", map[string]any{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}
		if sent {
			published++
		}
	}

	w.log.InfoObj("watch pass completed", "watch_meta", map[string]any{
		"symbols_count": len(w.opts.Symbols),
		"published":     published,
		"failed":        len(errs),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return published, errors.Join(errs...)
}

func (w *Watcher) processSymbol(ctx context.Context, symbol string) (bool, error) {
	prices, err := w.backend.GetOHLC(ctx, symbol, w.opts.Timeframe)
	if err != nil {
		return false, fmt.Errorf("fetch prices: %w", err)
	}
	closes, err := domain.ExtractCloses(prices)
	if err != nil {
		return false, err
	}

	rsiResp, err := w.backend.GetRSI(ctx, closes, w.opts.RSIPeriod)
	if err != nil {
		return false, fmt.Errorf("compute rsi: %w", err)
	}
	rsi, err := domain.ExtractRSI(rsiResp)
	if err != nil {
		return false, err
	}

	result, err := w.backend.GetRSIStrategy(ctx, rsi)
	if err != nil {
		return false, fmt.Errorf("evaluate strategy: %w", err)
	}

	digest := digestOf(result)
	if prev, ok := w.last[symbol]; ok && prev == digest {
		w.log.DebugObj("strategy result unchanged", "symbol", symbol)
		return false, nil
	}

	evt := sinks.NewEvent(sinks.KindRSIStrategy, symbol, w.opts.Timeframe, result)
	delivered, err := w.publisher.Publish(ctx, evt)
	if delivered > 0 {
		// recorded once any sink accepted it
		w.last[symbol] = digest
	}
	if err != nil {
		return delivered > 0, fmt.Errorf("publish: %w", err)
	}
	return true, nil
}

func digestOf(raw json.RawMessage) [sha256.Size]byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return sha256.Sum256(raw)
	}
	return sha256.Sum256(buf.Bytes())
}
