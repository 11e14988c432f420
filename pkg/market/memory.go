package market

import (
	"context"
	"time"

	"github.com/kazetani/hekla/pkg/model"
)

// MemorySource serves candles from a slice. Used in tests and replay.
type MemorySource struct {
	candles []model.Candle
}

// NewMemorySource creates an in-memory candle source. Candles must be
// in chronological order.
func NewMemorySource(candles []model.Candle) *MemorySource {
	return &MemorySource{candles: candles}
}

var _ Source = (*MemorySource)(nil)

// AddCandles appends candles to the source.
func (s *MemorySource) AddCandles(candles []model.Candle) {
	s.candles = append(s.candles, candles...)
}

// GetData returns candles at or before target, oldest first.
func (s *MemorySource) GetData(ctx context.Context, symbol string, target time.Time, interval string, totalRows int) ([]model.Candle, error) {
	var filtered []model.Candle
	for _, c := range s.candles {
		if c.Time.After(target) {
			continue
		}
		filtered = append(filtered, c)
	}

	if len(filtered) > totalRows {
		filtered = filtered[len(filtered)-totalRows:]
	}
	return filtered, nil
}
