package retrieve

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
)

// fakeStore serves canned fingerprints and neighbors.
type fakeStore struct {
	fingerprints map[int64]*model.Fingerprint
	neighbors    []model.NeighborMatch
	lastAsOf     time.Time
	lastTopK     int
}

func (f *fakeStore) Upsert(ctx context.Context, fp *model.Fingerprint) error {
	return nil
}

func (f *fakeStore) UpdateLabels(ctx context.Context, updates []model.LabelUpdate) error {
	return nil
}

func (f *fakeStore) BulkSave(ctx context.Context, rows []feature.BulkRow) (int, error) {
	return len(rows), nil
}

func (f *fakeStore) FingerprintAt(ctx context.Context, t time.Time) (*model.Fingerprint, error) {
	return f.fingerprints[t.Unix()], nil
}

func (f *fakeStore) FindNeighbors(ctx context.Context, embedding []float64, asOf time.Time, topK int) ([]model.NeighborMatch, error) {
	f.lastAsOf = asOf
	f.lastTopK = topK
	return f.neighbors, nil
}

func TestFindSimilar(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-24 * time.Hour)

	t.Run("no stored fingerprint yields empty result", func(t *testing.T) {
		fs := &fakeStore{fingerprints: map[int64]*model.Fingerprint{}}
		r := NewRetriever(fs, 5, zerolog.Nop())

		result, err := r.FindSimilar(context.Background(), now)
		require.NoError(t, err)
		assert.Empty(t, result.Neighbors)
		assert.Nil(t, result.QueryEmbedding)
		assert.True(t, result.QueryTime.Equal(now))
	})

	t.Run("neighbors come back with the query embedding", func(t *testing.T) {
		fp := &model.Fingerprint{
			Time:      now,
			Embedding: []float64{0.1, -0.2, 0.3},
		}
		fs := &fakeStore{
			fingerprints: map[int64]*model.Fingerprint{now.Unix(): fp},
			neighbors: []model.NeighborMatch{
				{Time: earlier, Distance: 0.05, Similarity: 0.95},
			},
		}
		r := NewRetriever(fs, 7, zerolog.Nop())

		result, err := r.FindSimilar(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, fp.Embedding, result.QueryEmbedding)
		require.Len(t, result.Neighbors, 1)

		// The search must be bounded by the fingerprint's own time.
		assert.True(t, fs.lastAsOf.Equal(now))
		assert.Equal(t, 7, fs.lastTopK)
	})

	t.Run("non-positive topK falls back to default", func(t *testing.T) {
		fs := &fakeStore{
			fingerprints: map[int64]*model.Fingerprint{
				now.Unix(): {Time: now, Embedding: []float64{1}},
			},
		}
		r := NewRetriever(fs, 0, zerolog.Nop())

		_, err := r.FindSimilar(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, fs.lastTopK)
	})
}
