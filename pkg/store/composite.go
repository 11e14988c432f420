package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/store/duckdb"
	"github.com/kazetani/hekla/pkg/store/milvus"
	"github.com/kazetani/hekla/pkg/vector"
)

// VectorIndex is the slice of the Milvus client the composite store
// needs. *milvus.Client satisfies it.
type VectorIndex interface {
	Insert(ctx context.Context, collection string, data *milvus.PatternData) error
	InsertBatch(ctx context.Context, collection string, dataList []*milvus.PatternData) error
	Search(ctx context.Context, collection string, embedding []float32, filter string, topK int) ([]milvus.SearchResult, error)
	Flush(ctx context.Context, collection string) error
}

// CompositeStore keeps pattern rows and labels in DuckDB and mirrors
// embeddings into a vector index for approximate search. DuckDB is the
// source of truth; the index only answers "which timestamps are similar".
type CompositeStore struct {
	patterns   *duckdb.PatternRepo
	vectors    VectorIndex
	collection string
	symbol     string
	interval   string
	logger     zerolog.Logger
}

// NewCompositeStore creates a store scoped to one symbol/interval series.
func NewCompositeStore(patterns *duckdb.PatternRepo, vectors VectorIndex, collection, symbol, interval string, logger zerolog.Logger) *CompositeStore {
	return &CompositeStore{
		patterns:   patterns,
		vectors:    vectors,
		collection: collection,
		symbol:     symbol,
		interval:   interval,
		logger:     logger.With().Str("component", "store").Logger(),
	}
}

var _ PatternStore = (*CompositeStore)(nil)

// Upsert writes the fingerprint to DuckDB and mirrors it into Milvus.
func (s *CompositeStore) Upsert(ctx context.Context, fp *model.Fingerprint) error {
	if err := s.patterns.Insert(ctx, fp); err != nil {
		return err
	}

	data := &milvus.PatternData{
		PatternID: fp.ID(),
		Embedding: vector.ToFloat32(fp.Embedding),
		Symbol:    fp.Symbol,
		Interval:  fp.Interval,
		TEnd:      fp.Time,
	}
	if err := s.vectors.Insert(ctx, s.collection, data); err != nil {
		return fmt.Errorf("failed to index embedding: %w", err)
	}
	return nil
}

// UpdateLabels applies label updates to the row store. Milvus holds no
// label columns, so nothing to mirror.
func (s *CompositeStore) UpdateLabels(ctx context.Context, updates []model.LabelUpdate) error {
	return s.patterns.UpdateLabels(ctx, s.symbol, s.interval, updates)
}

// BulkSave persists labeled rows to DuckDB, then indexes the batch in
// Milvus in one insert.
func (s *CompositeStore) BulkSave(ctx context.Context, rows []feature.BulkRow) (int, error) {
	saved, err := s.patterns.BulkSave(ctx, rows)
	if err != nil {
		return 0, err
	}

	batch := make([]*milvus.PatternData, 0, len(rows))
	for i := range rows {
		fp := &rows[i].Fingerprint
		batch = append(batch, &milvus.PatternData{
			PatternID: fp.ID(),
			Embedding: vector.ToFloat32(fp.Embedding),
			Symbol:    fp.Symbol,
			Interval:  fp.Interval,
			TEnd:      fp.Time,
		})
	}
	if err := s.vectors.InsertBatch(ctx, s.collection, batch); err != nil {
		return saved, fmt.Errorf("failed to index batch: %w", err)
	}
	if err := s.vectors.Flush(ctx, s.collection); err != nil {
		s.logger.Warn().Err(err).Msg("failed to flush index after bulk save")
	}
	return saved, nil
}

// FingerprintAt reads a stored fingerprint from the row store.
func (s *CompositeStore) FingerprintAt(ctx context.Context, t time.Time) (*model.Fingerprint, error) {
	return s.patterns.FingerprintAt(ctx, s.symbol, s.interval, t)
}

// FindNeighbors searches Milvus for similar embeddings strictly before
// asOf, then hydrates each hit with its embedding and labels from
// DuckDB. Hits whose row is missing or malformed are dropped.
func (s *CompositeStore) FindNeighbors(ctx context.Context, embedding []float64, asOf time.Time, topK int) ([]model.NeighborMatch, error) {
	filter := fmt.Sprintf(`symbol == "%s" && interval == "%s" && t_end < %d`,
		s.symbol, s.interval, asOf.Unix())

	hits, err := s.vectors.Search(ctx, s.collection, vector.ToFloat32(embedding), filter, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	kept := make([]milvus.SearchResult, 0, len(hits))
	times := make([]time.Time, 0, len(hits))
	seen := make(map[int64]bool, len(hits))
	for _, h := range hits {
		// A stale index entry must never leak data at or after asOf.
		if !h.TEnd.Before(asOf) {
			continue
		}
		// Stale index segments can hold more than one entity per
		// timestamp; hydrate each timestamp once.
		if seen[h.TEnd.Unix()] {
			continue
		}
		seen[h.TEnd.Unix()] = true
		kept = append(kept, h)
		times = append(times, h.TEnd)
	}

	rows, err := s.patterns.RowsByTimes(ctx, s.symbol, s.interval, times)
	if err != nil {
		return nil, err
	}

	matches := make([]model.NeighborMatch, 0, len(kept))
	for _, h := range kept {
		row, ok := rows[h.TEnd.Unix()]
		if !ok {
			s.logger.Warn().
				Time("t_end", h.TEnd).
				Msg("index hit has no row in store, dropping")
			continue
		}

		// COSINE score is a similarity in [-1, 1]; distance inverts it.
		sim := float64(h.Score)
		matches = append(matches, model.NeighborMatch{
			Time:       row.Time,
			Embedding:  row.Embedding,
			Similarity: sim,
			Distance:   1 - sim,
			NextReturn: row.NextReturn,
			NextSlope3: row.NextSlope3,
			NextSlope5: row.NextSlope5,
		})
	}

	return matches, nil
}
