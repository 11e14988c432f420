package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Label column names. These are the only columns a LabelUpdate may target;
// the store rejects anything else without aborting the batch.
const (
	LabelNextReturn = "next_return"
	LabelNextSlope3 = "next_slope_3"
	LabelNextSlope5 = "next_slope_5"
)

// Fingerprint is the normalized fixed-length shape descriptor of a trailing
// price window. Time is the timestamp of the last candle in the window, and
// the embedding always has exactly the configured window length.
// A fingerprint is created once per (symbol, interval, time); a repeated
// write for the same key is a no-op.
type Fingerprint struct {
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Interval   string    `json:"interval"`
	Embedding  []float64 `json:"embedding"`
	ClosePrice float64   `json:"close_price"`
}

// ID returns a deterministic identity for this fingerprint, used as the
// vector-index primary key. Same (symbol, interval, time) always produces
// the same ID, which is what makes vector writes idempotent.
func (f *Fingerprint) ID() string {
	return PatternID(f.Symbol, f.Interval, f.Time)
}

// PatternID hashes (symbol|interval|unix time) into a 32-hex-char key.
func PatternID(symbol, interval string, t time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", symbol, interval, t.Unix())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:16])
}

// LabelUpdate carries a forward-looking outcome for a previously created
// fingerprint. TargetTime always refers to a row strictly earlier than the
// window that produced the update; it never creates a new row.
type LabelUpdate struct {
	TargetTime time.Time `json:"target_time"`
	Column     string    `json:"column"`
	Value      float64   `json:"value"`
}

// NeighborMatch is one similarity-search hit, derived at query time.
// Distance is non-negative with 0 meaning identical; Similarity is
// 1 - Distance. Label fields are nil while the outcome is not yet
// realized; the *Value accessors substitute 0.0 for display.
type NeighborMatch struct {
	Time       time.Time `json:"time"`
	Embedding  []float64 `json:"embedding"`
	Distance   float64   `json:"distance"`
	Similarity float64   `json:"similarity_score"`

	NextReturn *float64 `json:"next_return"`
	NextSlope3 *float64 `json:"next_slope_3"`
	NextSlope5 *float64 `json:"next_slope_5"`
}

// Realized reports whether the immediate-return outcome for this match
// has been backfilled yet.
func (m *NeighborMatch) Realized() bool {
	return m.NextReturn != nil
}

// NextReturnValue returns the realized next_return, or 0.0 when pending.
func (m *NeighborMatch) NextReturnValue() float64 {
	return deref(m.NextReturn)
}

// NextSlope3Value returns the realized 3-step slope, or 0.0 when pending.
func (m *NeighborMatch) NextSlope3Value() float64 {
	return deref(m.NextSlope3)
}

// NextSlope5Value returns the realized 5-step slope, or 0.0 when pending.
func (m *NeighborMatch) NextSlope5Value() float64 {
	return deref(m.NextSlope5)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
