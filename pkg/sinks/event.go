package sinks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindRSIStrategy = "rsi_strategy"
)

// Event is the envelope forwarded to sinks. Payload is the backend response, untouched.
type Event struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Symbol      string          `json:"symbol"`
	Timeframe   string          `json:"timeframe"`
	Payload     json.RawMessage `json:"payload"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewEvent stamps a new event with a random id and the current UTC time.
func NewEvent(kind, symbol, timeframe string, payload json.RawMessage) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		Symbol:      symbol,
		Timeframe:   timeframe,
		Payload:     payload,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are copied onto queue/topic messages for subscriber-side filtering.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id": e.ID,
		"kind":     e.Kind,
		"symbol":   e.Symbol,
	}
}
