package model

import (
	"strconv"
	"time"
)

// Candle represents a single K-line (candlestick) data point.
// Candles are immutable once fetched and always handled in
// ascending-time order, most recent last.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ParsePrice coerces an exchange price string into a float64.
// Exchange APIs deliver prices as decimal strings; zero is returned
// for anything unparsable so callers can guard on it.
func ParsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Closes extracts the close series from a candle slice, preserving order.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
