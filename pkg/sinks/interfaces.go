package sinks

import "context"

// Sink delivers events to a downstream destination (webhook, queue, topic).
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, evt Event) error
	Close() error
}
