package model

// Signal is the terminal outcome of one decision evaluation.
type Signal string

const (
	SignalLong  Signal = "LONG"
	SignalShort Signal = "SHORT"
	SignalHold  Signal = "HOLD"
)

// Valid reports whether s is one of the three known signals.
func (s Signal) Valid() bool {
	switch s {
	case SignalLong, SignalShort, SignalHold:
		return true
	}
	return false
}

// Decision is the ephemeral output of one decider invocation. Confidence is
// always in [0, 1]. The core never persists decisions; collaborators that
// notify or place orders consume them downstream.
type Decision struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}
