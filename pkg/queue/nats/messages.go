package nats

import (
	"encoding/json"

	"github.com/kazetani/hekla/pkg/model"
)

// Subject constants
const (
	SubjectPatternWrite = "hekla.patterns.write"
	SubjectLabelWrite   = "hekla.labels.write"
)

// PatternWriteMsg carries a fingerprint to the writer, optionally with
// the label updates its candle resolved.
type PatternWriteMsg struct {
	Fingerprint *model.Fingerprint  `json:"fingerprint"`
	Labels      []model.LabelUpdate `json:"labels,omitempty"`
}

// LabelWriteMsg carries standalone label updates.
type LabelWriteMsg struct {
	Labels []model.LabelUpdate `json:"labels"`
}

// Encode serializes a message to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePatternWrite deserializes a PatternWriteMsg from JSON bytes
func DecodePatternWrite(data []byte) (*PatternWriteMsg, error) {
	var msg PatternWriteMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeLabelWrite deserializes a LabelWriteMsg from JSON bytes
func DecodeLabelWrite(data []byte) (*LabelWriteMsg, error) {
	var msg LabelWriteMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
