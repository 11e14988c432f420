package feature

import "github.com/kazetani/hekla/pkg/model"

// BulkRow is one backfill output row: the fingerprint ending at that index
// plus its forward labels. Label pointers stay nil when the series ends
// before the label's future window, matching the incremental path's
// omission policy.
type BulkRow struct {
	Fingerprint model.Fingerprint
	NextReturn  *float64
	NextSlope3  *float64
	NextSlope5  *float64
}

// Labels flattens the non-nil outcomes into label updates targeting this
// row's own timestamp.
func (r *BulkRow) Labels() []model.LabelUpdate {
	updates := []model.LabelUpdate{}
	add := func(column string, v *float64) {
		if v != nil {
			updates = append(updates, model.LabelUpdate{
				TargetTime: r.Fingerprint.Time,
				Column:     column,
				Value:      *v,
			})
		}
	}
	add(model.LabelNextReturn, r.NextReturn)
	add(model.LabelNextSlope3, r.NextSlope3)
	add(model.LabelNextSlope5, r.NextSlope5)
	return updates
}

// BulkEngine is the vectorized sibling of Builder: one pass over the whole
// historical series, producing the same fingerprints and labels the
// incremental path would produce at every index. It exists purely for
// backfill throughput and must never diverge from Build/Labels.
type BulkEngine struct {
	builder *Builder
}

// NewBulkEngine creates a bulk engine sharing the builder's configuration.
func NewBulkEngine(b *Builder) *BulkEngine {
	return &BulkEngine{builder: b}
}

// Run computes one BulkRow per end index. The global log-return series is
// computed once; each contiguous window-length subsequence is normalized
// on its own mean and std, which reproduces Build exactly at that index.
// Forward labels are attached to the row they describe.
func (e *BulkEngine) Run(candles []model.Candle) []BulkRow {
	w := e.builder.Window
	n := len(candles)
	if n < w+1 {
		return nil
	}

	closes := model.Closes(candles)
	returns := LogReturns(closes)

	rows := make([]BulkRow, 0, n-w)
	for i := w; i < n; i++ {
		// returns[i-w : i] are the w log-returns ending at candle i.
		embedding := ZScore(returns[i-w : i])

		row := BulkRow{
			Fingerprint: model.Fingerprint{
				Time:       candles[i].Time,
				Symbol:     e.builder.Symbol,
				Interval:   e.builder.Interval,
				Embedding:  embedding,
				ClosePrice: closes[i],
			},
		}

		if i+1 < n && closes[i] != 0 {
			ret := (closes[i+1] - closes[i]) / closes[i]
			row.NextReturn = &ret
		}
		if i+slope3Horizon < n {
			s := Slope(closes[i+1 : i+1+slope3Horizon])
			row.NextSlope3 = &s
		}
		if i+slope5Horizon < n {
			s := Slope(closes[i+1 : i+1+slope5Horizon])
			row.NextSlope5 = &s
		}

		rows = append(rows, row)
	}

	return rows
}
