package feature

import "github.com/kazetani/hekla/pkg/model"

// Forward horizons for the slope labels.
const (
	slope3Horizon = 3
	slope5Horizon = 5
)

// Labels computes forward-looking outcomes for past rows given a window
// whose last candle is "now". Offsets are counted explicitly from the end
// of the slice and bounds-checked before use:
//
//	next_return  -> row at n-2, realized by the close at n-1
//	next_slope_3 -> row at n-4, realized by the 3 closes at n-3..n-1
//	next_slope_5 -> row at n-6, realized by the 5 closes at n-5..n-1
//
// A label whose source row or full future window does not fit in the
// slice is simply omitted. Every emitted target time is strictly earlier
// than the last candle's timestamp.
func (b *Builder) Labels(candles []model.Candle) []model.LabelUpdate {
	updates := []model.LabelUpdate{}
	n := len(candles)

	// Next return: percent change from n-2 to n-1, skipped on a zero base.
	if n >= 2 {
		prev := candles[n-2].Close
		curr := candles[n-1].Close
		if prev != 0 {
			updates = append(updates, model.LabelUpdate{
				TargetTime: candles[n-2].Time,
				Column:     model.LabelNextReturn,
				Value:      (curr - prev) / prev,
			})
		}
	}

	if u, ok := b.slopeLabel(candles, slope3Horizon, model.LabelNextSlope3); ok {
		updates = append(updates, u)
	}
	if u, ok := b.slopeLabel(candles, slope5Horizon, model.LabelNextSlope5); ok {
		updates = append(updates, u)
	}

	return updates
}

// slopeLabel targets the row at n-(horizon+1) and fits the slope of the
// horizon closes that immediately follow it.
func (b *Builder) slopeLabel(candles []model.Candle, horizon int, column string) (model.LabelUpdate, bool) {
	n := len(candles)
	target := n - horizon - 1
	if target < 0 {
		return model.LabelUpdate{}, false
	}

	future := make([]float64, 0, horizon)
	for i := target + 1; i < n; i++ {
		future = append(future, candles[i].Close)
	}

	return model.LabelUpdate{
		TargetTime: candles[target].Time,
		Column:     column,
		Value:      Slope(future),
	}, true
}
