package sinks

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/quantdesk-hq/tradelab-client/pkg/httpclient"
)

const (
	// HeaderEventID carries the event id so receivers can drop redeliveries.
	HeaderEventID = "X-Tradelab-Event-Id"

	maxErrorBodyBytes = 512
)

// httpSink delivers events to a webhook. Static headers live on the client.
type httpSink struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    Logger
}

func newHTTPSink(_ context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("sink %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.HTTP.Headers)

	return &httpSink{
		id:     cfg.ID,
		method: cfg.HTTP.Method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (h *httpSink) ID() string   { return h.id }
func (h *httpSink) Type() string { return TypeHTTP }
func (h *httpSink) Close() error { return nil }

// Send delivers the event as a JSON body. Any non-2xx answer is a failed delivery.
func (h *httpSink) Send(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader(HeaderEventID, evt.ID).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("deliver event %s: %w", evt.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook answered %d for event %s: %s",
			resp.StatusCode(), evt.ID, bodySnippet(resp.Body(), maxErrorBodyBytes))
	}

	h.log.DebugObj("http sink delivered event", "sink_http_delivery", map[string]any{
		"sink_id":  h.id,
		"event_id": evt.ID,
		"status":   resp.StatusCode(),
	})
	return nil
}

// bodySnippet cuts body to at most limit bytes without splitting a UTF-8 sequence.
func bodySnippet(body []byte, limit int) string {
	if len(body) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return strings.TrimSpace(string(body))
}
