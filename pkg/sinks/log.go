package sinks

import "context"

// logSink writes events through the structured logger; handy for dry runs.
type logSink struct {
	id  string
	log Logger
}

func newLogSink(_ context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	return &logSink{id: cfg.ID, log: ensureLogger(log)}, nil
}

func (l *logSink) ID() string   { return l.id }
func (l *logSink) Type() string { return TypeLog }
func (l *logSink) Close() error { return nil }

func (l *logSink) Send(_ context.Context, evt Event) error {
	l.log.InfoObj("event", "sink_event", evt)
	return nil
}
