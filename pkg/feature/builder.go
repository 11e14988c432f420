// Package feature turns candle windows into normalized shape fingerprints
// and computes the forward-looking outcome labels attached to past rows.
// The incremental path (Build/Labels) serves live ingestion; BulkEngine is
// its vectorized equivalent for backfill and must stay numerically
// identical to it.
package feature

import (
	"math"

	"github.com/kazetani/hekla/pkg/model"
)

// Epsilon guards divisions against constant-price windows and zero bases.
const Epsilon = 1e-9

// DefaultWindow is the number of log-returns in one fingerprint.
const DefaultWindow = 60

// Builder computes fingerprints and labels for one (symbol, interval).
type Builder struct {
	Symbol   string
	Interval string
	Window   int
}

// NewBuilder creates a builder. A non-positive window falls back to the
// default of 60 returns.
func NewBuilder(symbol, interval string, window int) *Builder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Builder{Symbol: symbol, Interval: interval, Window: window}
}

// Build turns the trailing window+1 candles into a fingerprint.
// It returns nil when fewer candles are available; that is the normal
// "not enough data yet" outcome, not an error.
func (b *Builder) Build(candles []model.Candle) *model.Fingerprint {
	need := b.Window + 1
	if len(candles) < need {
		return nil
	}

	window := candles[len(candles)-need:]
	closes := model.Closes(window)

	embedding := ZScore(LogReturns(closes))

	last := window[len(window)-1]
	return &model.Fingerprint{
		Time:       last.Time,
		Symbol:     b.Symbol,
		Interval:   b.Interval,
		Embedding:  embedding,
		ClosePrice: last.Close,
	}
}

// LogReturns computes r[i] = ln(close[i+1]) - ln(close[i]).
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = math.Log(closes[i]) - math.Log(closes[i-1])
	}
	return out
}

// ZScore normalizes values to (v - mean) / (std + epsilon). A constant
// series normalizes to all zeros rather than dividing by zero.
func ZScore(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mean, std := meanStd(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / (std + Epsilon)
	}
	return out
}

// meanStd calculates mean and population standard deviation.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	std = math.Sqrt(sumSquares / float64(len(values)))

	return mean, std
}
