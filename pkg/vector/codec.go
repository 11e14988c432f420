// Package vector converts embeddings between their stored text forms and
// in-memory float slices. Stored rows may carry a JSON array, a pgvector
// style {...} literal, or a bare comma-separated list depending on which
// ingestion path wrote them, so decoding tries each form in turn.
package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when every parse strategy fails. Callers treat
// a malformed embedding as "no data" for that row, never as a fatal error.
var ErrMalformed = errors.New("vector: malformed embedding")

// Decode converts a raw stored value into a float64 slice. Native float
// slices pass through; strings are parsed as JSON arrays, as brace-array
// literals (braces rewritten to brackets first), and finally as a
// comma-separated list of floats.
func Decode(raw interface{}) ([]float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrMalformed)
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case string:
		return decodeString(v)
	case []byte:
		return decodeString(string(v))
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformed, raw)
	}
}

func decodeString(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformed)
	}

	// pgvector renders arrays as {0.1,0.2}; rewrite to JSON brackets.
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = strings.ReplaceAll(s, "{", "[")
		s = strings.ReplaceAll(s, "}", "]")
	}

	var vec []float64
	if err := json.Unmarshal([]byte(s), &vec); err == nil {
		return vec, nil
	}

	// Last resort: strip any brackets and split on commas.
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	vec = make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, p)
		}
		vec = append(vec, f)
	}
	return vec, nil
}

// Encode serializes an embedding into its canonical stored form, a JSON
// array. Decode(Encode(v)) round-trips exactly for finite values.
func Encode(vec []float64) (string, error) {
	data, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("vector: encode: %w", err)
	}
	return string(data), nil
}

// ToFloat32 converts an embedding for engines that index float32 vectors.
func ToFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
