// Package domain holds the few response shapes the watch pipeline has to look inside.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Candle is one OHLCV bar as the backend's price endpoints return it.
type Candle struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// PriceSeries is the envelope around a list of candles.
type PriceSeries struct {
	Ticker   string   `json:"ticker"`
	Interval string   `json:"interval"`
	Data     []Candle `json:"data"`
}

// ErrNoCloses is returned when a price response carries no close prices.
var ErrNoCloses = errors.New("price response contains no close prices")

// ExtractCloses pulls the close prices, oldest first, out of a price response.
// Accepted shapes: {"data":[{..,"close":x}]}, a bare candle array, or {"close":[..]}.
func ExtractCloses(raw json.RawMessage) ([]float64, error) {
	var candles []Candle
	if err := json.Unmarshal(raw, &candles); err == nil {
		return closesOf(candles)
	}

	var envelope struct {
		Data  []Candle  `json:"data"`
		Close []float64 `json:"close"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}
	if len(envelope.Data) > 0 {
		return closesOf(envelope.Data)
	}
	if len(envelope.Close) > 0 {
		return envelope.Close, nil
	}
	return nil, ErrNoCloses
}

func closesOf(candles []Candle) ([]float64, error) {
	if len(candles) == 0 {
		return nil, ErrNoCloses
	}
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out, nil
}

// ExtractRSI returns the RSI series member of an RSI response, still raw.
// The indicator route answers {"rsi":[..]} while the newer one answers {"values":[..]}.
func ExtractRSI(raw json.RawMessage) (json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		var series []json.RawMessage
		if errArr := json.Unmarshal(raw, &series); errArr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("decode rsi response: %w", err)
	}
	for _, key := range []string{"rsi", "values"} {
		if v, ok := envelope[key]; ok && string(v) != "null" {
			return v, nil
		}
	}
	return nil, errors.New("rsi response has neither rsi nor values member")
}
