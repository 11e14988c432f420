package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/store/duckdb"
	"github.com/kazetani/hekla/pkg/store/milvus"
)

// fakeIndex stands in for the Milvus client and replays canned hits.
type fakeIndex struct {
	inserted []*milvus.PatternData
	hits     []milvus.SearchResult
	filter   string
	flushes  int
}

func (f *fakeIndex) Insert(ctx context.Context, collection string, data *milvus.PatternData) error {
	f.inserted = append(f.inserted, data)
	return nil
}

func (f *fakeIndex) InsertBatch(ctx context.Context, collection string, dataList []*milvus.PatternData) error {
	f.inserted = append(f.inserted, dataList...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, collection string, embedding []float32, filter string, topK int) ([]milvus.SearchResult, error) {
	f.filter = filter
	return f.hits, nil
}

func (f *fakeIndex) Flush(ctx context.Context, collection string) error {
	f.flushes++
	return nil
}

func newComposite(t *testing.T, index VectorIndex) (*CompositeStore, *duckdb.PatternRepo) {
	t.Helper()
	client, err := duckdb.NewClient("")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, duckdb.InitializeSchema(context.Background(), client))

	patterns := duckdb.NewPatternRepo(client, zerolog.Nop())
	composite := NewCompositeStore(patterns, index, "market_pattern", "ADAUSDT", "15m", zerolog.Nop())
	return composite, patterns
}

func compositeFingerprint(at time.Time) *model.Fingerprint {
	return &model.Fingerprint{
		Time:       at,
		Symbol:     "ADAUSDT",
		Interval:   "15m",
		Embedding:  []float64{0.5, -0.25, 0.125},
		ClosePrice: 0.52,
	}
}

func TestCompositeUpsertIdempotent(t *testing.T) {
	index := &fakeIndex{}
	composite, patterns := newComposite(t, index)
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fp := compositeFingerprint(at)

	require.NoError(t, composite.Upsert(ctx, fp))
	require.NoError(t, composite.Upsert(ctx, fp))

	count, err := patterns.Count(ctx, "ADAUSDT", "15m")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Both index writes carry the same key, so the index keeps one entity.
	require.Len(t, index.inserted, 2)
	assert.Equal(t, index.inserted[0].PatternID, index.inserted[1].PatternID)
	assert.Equal(t, fp.ID(), index.inserted[0].PatternID)
	assert.True(t, index.inserted[0].TEnd.Equal(at))
}

func TestCompositeBulkSaveIndexesAndFlushes(t *testing.T) {
	index := &fakeIndex{}
	composite, patterns := newComposite(t, index)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []feature.BulkRow{
		{Fingerprint: *compositeFingerprint(base)},
		{Fingerprint: *compositeFingerprint(base.Add(15 * time.Minute))},
	}

	saved, err := composite.BulkSave(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Len(t, index.inserted, 2)
	assert.Equal(t, 1, index.flushes)

	count, err := patterns.Count(ctx, "ADAUSDT", "15m")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCompositeFindNeighbors(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	t1 := base
	t2 := base.Add(15 * time.Minute)
	missing := base.Add(30 * time.Minute)
	asOf := base.Add(time.Hour)

	// Scores picked to be exact in float32 so distances compare exactly.
	index := &fakeIndex{hits: []milvus.SearchResult{
		{TEnd: t1, Score: 0.75},
		{TEnd: asOf, Score: 0.875},    // at asOf, must be dropped
		{TEnd: t1, Score: 0.75},       // duplicate entity, hydrated once
		{TEnd: missing, Score: 0.625}, // no row in the store
		{TEnd: t2, Score: 0.5},
	}}
	composite, patterns := newComposite(t, index)
	ctx := context.Background()

	require.NoError(t, patterns.Insert(ctx, compositeFingerprint(t1)))
	require.NoError(t, patterns.Insert(ctx, compositeFingerprint(t2)))
	require.NoError(t, patterns.UpdateLabels(ctx, "ADAUSDT", "15m", []model.LabelUpdate{
		{TargetTime: t1, Column: model.LabelNextReturn, Value: 0.004},
	}))

	matches, err := composite.FindNeighbors(ctx, []float64{0.5, -0.25, 0.125}, asOf, 5)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.True(t, matches[0].Time.Equal(t1))
	assert.Equal(t, 0.75, matches[0].Similarity)
	assert.Equal(t, 0.25, matches[0].Distance)
	require.NotNil(t, matches[0].NextReturn)
	assert.Equal(t, 0.004, *matches[0].NextReturn)

	assert.True(t, matches[1].Time.Equal(t2))
	assert.Equal(t, 0.5, matches[1].Distance)
	assert.Nil(t, matches[1].NextReturn)

	wantFilter := fmt.Sprintf(`symbol == "ADAUSDT" && interval == "15m" && t_end < %d`, asOf.Unix())
	assert.Equal(t, wantFilter, index.filter)
}

func TestCompositeFindNeighborsNoHits(t *testing.T) {
	composite, _ := newComposite(t, &fakeIndex{})

	matches, err := composite.FindNeighbors(context.Background(), []float64{0.1},
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	assert.Nil(t, matches)
}
