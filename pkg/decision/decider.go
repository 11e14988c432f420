// Package decision turns a gated neighbor set into a trading signal.
// The heavy lifting is delegated to a judgment function; the decider
// owns the consensus summary and the confidence floor.
package decision

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/model"
)

// Evidence is everything handed to the judgment function for one call.
type Evidence struct {
	Symbol    string
	Interval  string
	QueryTime time.Time
	Neighbors []model.NeighborMatch
	Consensus Consensus
	// RecentCloses are the latest close prices, oldest first, for
	// short-term context.
	RecentCloses []float64
	// Snapshot is an optional chart image (PNG) to attach.
	Snapshot []byte
}

// Consensus summarizes what the matched history did next.
type Consensus struct {
	// UpFraction is the share of neighbors whose realized next
	// return was positive.
	UpFraction float64
	// MeanNextReturn is the average realized next return.
	MeanNextReturn float64
	// MeanSlope3 and MeanSlope5 are the average forward slopes.
	MeanSlope3 float64
	MeanSlope5 float64
	// Samples is the number of neighbors summarized.
	Samples int
}

// Summarize computes consensus statistics over a neighbor set. Missing
// labels count as zero, matching how they are displayed.
func Summarize(neighbors []model.NeighborMatch) Consensus {
	c := Consensus{Samples: len(neighbors)}
	if len(neighbors) == 0 {
		return c
	}

	up := 0
	for _, n := range neighbors {
		ret := n.NextReturnValue()
		if ret > 0 {
			up++
		}
		c.MeanNextReturn += ret
		c.MeanSlope3 += n.NextSlope3Value()
		c.MeanSlope5 += n.NextSlope5Value()
	}

	n := float64(len(neighbors))
	c.UpFraction = float64(up) / n
	c.MeanNextReturn /= n
	c.MeanSlope3 /= n
	c.MeanSlope5 /= n
	return c
}

// JudgmentFunc produces a decision from evidence. Implementations may
// call out to an external model.
type JudgmentFunc func(ctx context.Context, ev Evidence) (*model.Decision, error)

// Decider applies a judgment function and enforces the confidence
// floor on its output.
type Decider struct {
	judge               JudgmentFunc
	confidenceThreshold float64
	logger              zerolog.Logger
}

// NewDecider creates a decider. Decisions whose confidence falls below
// threshold are downgraded to HOLD.
func NewDecider(judge JudgmentFunc, threshold float64, logger zerolog.Logger) *Decider {
	return &Decider{
		judge:               judge,
		confidenceThreshold: threshold,
		logger:              logger.With().Str("component", "decider").Logger(),
	}
}

// Decide runs the judgment function over the evidence. A failed
// judgment yields a nil decision, logged but not fatal. A decision
// below the confidence floor keeps its confidence and rationale but is
// forced to HOLD.
func (d *Decider) Decide(ctx context.Context, ev Evidence) *model.Decision {
	dec, err := d.judge(ctx, ev)
	if err != nil {
		d.logger.Error().
			Err(err).
			Time("query_time", ev.QueryTime).
			Msg("judgment failed, no decision")
		return nil
	}
	if dec == nil {
		return nil
	}

	if !dec.Signal.Valid() {
		d.logger.Warn().
			Str("signal", string(dec.Signal)).
			Msg("unknown signal from judgment, holding")
		dec.Signal = model.SignalHold
	}

	if dec.Confidence < d.confidenceThreshold && dec.Signal != model.SignalHold {
		d.logger.Info().
			Str("signal", string(dec.Signal)).
			Float64("confidence", dec.Confidence).
			Float64("threshold", d.confidenceThreshold).
			Msg("confidence below threshold, overriding to hold")
		dec.Signal = model.SignalHold
	}

	return dec
}
