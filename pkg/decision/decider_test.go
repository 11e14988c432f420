package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazetani/hekla/pkg/model"
)

func ptr(v float64) *float64 { return &v }

func TestSummarize(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		c := Summarize(nil)
		assert.Zero(t, c.Samples)
		assert.Zero(t, c.UpFraction)
	})

	t.Run("mixed outcomes", func(t *testing.T) {
		neighbors := []model.NeighborMatch{
			{NextReturn: ptr(0.02), NextSlope3: ptr(0.001), NextSlope5: ptr(0.002)},
			{NextReturn: ptr(-0.01), NextSlope3: ptr(-0.003), NextSlope5: ptr(0.001)},
			{NextReturn: ptr(0.03)},
			{}, // unlabeled row counts as zero
		}

		c := Summarize(neighbors)
		assert.Equal(t, 4, c.Samples)
		assert.InDelta(t, 0.5, c.UpFraction, 1e-12)
		assert.InDelta(t, 0.01, c.MeanNextReturn, 1e-12)
		assert.InDelta(t, -0.0005, c.MeanSlope3, 1e-12)
		assert.InDelta(t, 0.00075, c.MeanSlope5, 1e-12)
	})
}

func TestDecide(t *testing.T) {
	ev := Evidence{
		Symbol:    "ADAUSDT",
		Interval:  "15m",
		QueryTime: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("confident signal passes through", func(t *testing.T) {
		judge := func(ctx context.Context, ev Evidence) (*model.Decision, error) {
			return &model.Decision{Signal: model.SignalLong, Confidence: 0.8, Rationale: "strong consensus"}, nil
		}
		d := NewDecider(judge, 0.6, zerolog.Nop())

		dec := d.Decide(context.Background(), ev)
		require.NotNil(t, dec)
		assert.Equal(t, model.SignalLong, dec.Signal)
		assert.Equal(t, 0.8, dec.Confidence)
	})

	t.Run("low confidence is forced to hold", func(t *testing.T) {
		judge := func(ctx context.Context, ev Evidence) (*model.Decision, error) {
			return &model.Decision{Signal: model.SignalShort, Confidence: 0.4, Rationale: "weak"}, nil
		}
		d := NewDecider(judge, 0.6, zerolog.Nop())

		dec := d.Decide(context.Background(), ev)
		require.NotNil(t, dec)
		assert.Equal(t, model.SignalHold, dec.Signal)
		// Confidence and rationale survive the override.
		assert.Equal(t, 0.4, dec.Confidence)
		assert.Equal(t, "weak", dec.Rationale)
	})

	t.Run("judgment failure yields nil", func(t *testing.T) {
		judge := func(ctx context.Context, ev Evidence) (*model.Decision, error) {
			return nil, errors.New("model unavailable")
		}
		d := NewDecider(judge, 0.6, zerolog.Nop())

		assert.Nil(t, d.Decide(context.Background(), ev))
	})

	t.Run("unknown signal becomes hold", func(t *testing.T) {
		judge := func(ctx context.Context, ev Evidence) (*model.Decision, error) {
			return &model.Decision{Signal: "MAYBE", Confidence: 0.9}, nil
		}
		d := NewDecider(judge, 0.6, zerolog.Nop())

		dec := d.Decide(context.Background(), ev)
		require.NotNil(t, dec)
		assert.Equal(t, model.SignalHold, dec.Signal)
	})

	t.Run("low confidence hold stays hold", func(t *testing.T) {
		judge := func(ctx context.Context, ev Evidence) (*model.Decision, error) {
			return &model.Decision{Signal: model.SignalHold, Confidence: 0.1}, nil
		}
		d := NewDecider(judge, 0.6, zerolog.Nop())

		dec := d.Decide(context.Background(), ev)
		require.NotNil(t, dec)
		assert.Equal(t, model.SignalHold, dec.Signal)
	})
}
