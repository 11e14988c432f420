package retrieve

import (
	"github.com/kazetani/hekla/pkg/model"
)

// Gate decides whether a match set is tight enough to act on. It takes
// the closest neighbor and the farthest neighbor with a different
// timestamp and compares their mean distance to a ceiling.
type Gate struct {
	// MaxMeanDistance is the inclusive ceiling on the mean distance
	// of the checked pair.
	MaxMeanDistance float64
}

// NewGate creates a gate with the given distance ceiling.
func NewGate(maxMeanDistance float64) *Gate {
	return &Gate{MaxMeanDistance: maxMeanDistance}
}

// Check reports whether the neighbor set passes the gate, along with
// the mean distance it measured. Neighbors must be in ascending
// distance order. A set without two time-distinct neighbors fails.
func (g *Gate) Check(neighbors []model.NeighborMatch) (bool, float64) {
	if len(neighbors) < 2 {
		return false, 0
	}

	closest := neighbors[0]

	// Walk back from the farthest neighbor to the last one that is
	// not just the closest pattern seen again at the same timestamp.
	var farthest *model.NeighborMatch
	for i := len(neighbors) - 1; i > 0; i-- {
		if !neighbors[i].Time.Equal(closest.Time) {
			farthest = &neighbors[i]
			break
		}
	}
	if farthest == nil {
		return false, 0
	}

	mean := (absFloat(closest.Distance) + absFloat(farthest.Distance)) / 2
	return mean <= g.MaxMeanDistance, mean
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
