package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/quantdesk-hq/tradelab-client/internal/config"
	"github.com/quantdesk-hq/tradelab-client/internal/logger"
	"github.com/quantdesk-hq/tradelab-client/pkg/sinks"
	"github.com/quantdesk-hq/tradelab-client/pkg/tradeapi"
)

// Runtime bundles the backend client and the sink fanout built from config.
type Runtime struct {
	cfg    *config.Config
	log    logger.Logger
	Client *tradeapi.Client
	Fanout *sinks.Fanout
}

// NewRuntime builds the backend client. Sinks are only built when withSinks is set,
// so one-shot commands never touch cloud credentials.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger, withSinks bool) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := tradeapi.New(cfg.APIBaseURL, cfg.RequestTimeout,
		tradeapi.WithLogger(log),
		tradeapi.WithDefaultTimeframe(cfg.DefaultTimeframe),
	)
	log.InfoObj("backend client configured", "backend_config", map[string]any{
		"base_url":        cfg.APIBaseURL,
		"timeout_seconds": int(cfg.RequestTimeout.Seconds()),
	})

	rt := &Runtime{cfg: cfg, log: log, Client: client}
	if !withSinks {
		return rt, nil
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rt.Fanout = fanout
	return rt, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*sinks.Fanout, error) {
	var enabled []sinks.SinkConfig
	if cfg.SinksFile == "" {
		log.WarnObj("no sinks file configured; events go to the log only", "sinks_file", cfg.SinksFile)
		enabled = []sinks.SinkConfig{{ID: "log", Type: sinks.TypeLog}}
	} else {
		reg, err := sinks.LoadRegistry(cfg.SinksFile)
		if err != nil {
			return nil, fmt.Errorf("load sinks registry: %w", err)
		}
		enabled = reg.Enabled()
		if len(enabled) == 0 {
			return nil, fmt.Errorf("no sinks enabled in %s", cfg.SinksFile)
		}
	}

	built, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, s := range enabled {
		summaries = append(summaries, map[string]string{"id": s.ID, "type": s.Type})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return sinks.NewFanout(built), nil
}

// Watcher builds the watch loop over this runtime's client and fanout.
func (r *Runtime) Watcher() (*Watcher, error) {
	if r == nil || r.Fanout == nil {
		return nil, errors.New("runtime was built without sinks")
	}
	return NewWatcher(WatchOptions{
		Symbols:   r.cfg.WatchSymbols,
		Timeframe: r.cfg.WatchTimeframe,
		RSIPeriod: r.cfg.WatchRSIPeriod,
		Interval:  r.cfg.WatchInterval,
	}, r.Client, r.Fanout, r.log)
}

// Close releases sink resources.
func (r *Runtime) Close() error {
	if r == nil || r.Fanout == nil {
		return nil
	}
	return r.Fanout.Close()
}
