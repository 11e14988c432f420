// Package store persists market patterns across a DuckDB row store and
// a Milvus vector index, and serves similarity lookups that join the
// two.
package store

import (
	"context"
	"time"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
)

// PatternStore is the persistence surface for fingerprints and their
// forward-looking labels.
type PatternStore interface {
	// Upsert stores a fingerprint in both the row store and the
	// vector index. Storing the same timestamp twice is a no-op.
	Upsert(ctx context.Context, fp *model.Fingerprint) error

	// UpdateLabels applies label values to previously stored rows.
	UpdateLabels(ctx context.Context, updates []model.LabelUpdate) error

	// BulkSave stores pre-labeled rows from a backfill and returns
	// how many were persisted.
	BulkSave(ctx context.Context, rows []feature.BulkRow) (int, error)

	// FingerprintAt returns the fingerprint stored at an exact
	// timestamp, or (nil, nil) when none exists.
	FingerprintAt(ctx context.Context, t time.Time) (*model.Fingerprint, error)

	// FindNeighbors returns up to topK stored patterns most similar
	// to the embedding, restricted to rows strictly before asOf,
	// ordered by ascending distance.
	FindNeighbors(ctx context.Context, embedding []float64, asOf time.Time, topK int) ([]model.NeighborMatch, error)
}
