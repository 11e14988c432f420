package feature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazetani/hekla/pkg/model"
)

func makeCandles(closes []float64) []model.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:  base.Add(time.Duration(i) * 15 * time.Minute),
			Close: c,
		}
	}
	return candles
}

func TestBuild(t *testing.T) {
	b := NewBuilder("BTCUSDT", "15m", 3)

	t.Run("insufficient candles returns nil", func(t *testing.T) {
		assert.Nil(t, b.Build(makeCandles([]float64{100, 101, 102})))
	})

	t.Run("embedding length equals window", func(t *testing.T) {
		fp := b.Build(makeCandles([]float64{100, 101, 102, 103}))
		require.NotNil(t, fp)
		assert.Len(t, fp.Embedding, 3)
		assert.Equal(t, 103.0, fp.ClosePrice)
		assert.Equal(t, "BTCUSDT", fp.Symbol)
		assert.Equal(t, "15m", fp.Interval)
	})

	t.Run("fingerprint time is the last candle time", func(t *testing.T) {
		candles := makeCandles([]float64{100, 101, 102, 103})
		fp := b.Build(candles)
		require.NotNil(t, fp)
		assert.True(t, fp.Time.Equal(candles[3].Time))
	})

	t.Run("zigzag shape puts the drop at the minimum", func(t *testing.T) {
		fp := b.Build(makeCandles([]float64{100, 200, 100, 200}))
		require.NotNil(t, fp)
		// up, down, up: the middle return must be the smallest.
		assert.Less(t, fp.Embedding[1], fp.Embedding[0])
		assert.Less(t, fp.Embedding[1], fp.Embedding[2])
		assert.InDelta(t, fp.Embedding[0], fp.Embedding[2], 1e-12)
	})

	t.Run("only the trailing window is used", func(t *testing.T) {
		long := b.Build(makeCandles([]float64{500, 1, 100, 101, 102, 103}))
		short := b.Build(makeCandles([]float64{100, 101, 102, 103}))
		require.NotNil(t, long)
		require.NotNil(t, short)
		assert.Equal(t, short.Embedding, long.Embedding)
	})
}

func TestZScore(t *testing.T) {
	t.Run("normalizes to zero mean unit std", func(t *testing.T) {
		out := ZScore([]float64{1, 2, 3, 4, 5})

		var mean float64
		for _, v := range out {
			mean += v
		}
		mean /= float64(len(out))
		assert.InDelta(t, 0, mean, 1e-6)

		var sumSq float64
		for _, v := range out {
			sumSq += (v - mean) * (v - mean)
		}
		std := math.Sqrt(sumSq / float64(len(out)))
		assert.InDelta(t, 1, std, 1e-6)
	})

	t.Run("constant series normalizes to zeros", func(t *testing.T) {
		out := ZScore([]float64{7, 7, 7, 7})
		for _, v := range out {
			assert.Zero(t, v)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, ZScore(nil))
	})
}

func TestLogReturns(t *testing.T) {
	out := LogReturns([]float64{100, 200, 100})
	require.Len(t, out, 2)
	assert.InDelta(t, math.Log(2), out[0], 1e-12)
	assert.InDelta(t, -math.Log(2), out[1], 1e-12)

	assert.Nil(t, LogReturns([]float64{100}))
}

func TestSlope(t *testing.T) {
	t.Run("linear rise", func(t *testing.T) {
		// 105..109 normalized on 105 rises 1/105 per step.
		got := Slope([]float64{105, 106, 107, 108, 109})
		assert.InDelta(t, 1.0/105, got, 1e-12)
	})

	t.Run("flat series", func(t *testing.T) {
		assert.Zero(t, Slope([]float64{50, 50, 50}))
	})

	t.Run("falling series is negative", func(t *testing.T) {
		assert.Negative(t, Slope([]float64{100, 98, 96}))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Zero(t, Slope([]float64{100}))
		assert.Zero(t, Slope(nil))
	})

	t.Run("zero base uses epsilon", func(t *testing.T) {
		got := Slope([]float64{0, 1, 2})
		assert.False(t, math.IsInf(got, 0))
		assert.False(t, math.IsNaN(got))
	})
}
