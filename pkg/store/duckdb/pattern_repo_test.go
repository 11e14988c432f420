package duckdb

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient("")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, InitializeSchema(context.Background(), client))
	return client
}

func storedFingerprint(at time.Time, closePrice float64) *model.Fingerprint {
	return &model.Fingerprint{
		Time:       at,
		Symbol:     "ADAUSDT",
		Interval:   "15m",
		Embedding:  []float64{0.1, -0.2, 0.3},
		ClosePrice: closePrice,
	}
}

func TestPatternRepoInsertIdempotent(t *testing.T) {
	client := newTestClient(t)
	repo := NewPatternRepo(client, zerolog.Nop())
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fp := storedFingerprint(at, 0.52)

	require.NoError(t, repo.Insert(ctx, fp))
	require.NoError(t, repo.Insert(ctx, fp))

	count, err := repo.Count(ctx, "ADAUSDT", "15m")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// A replayed write with different values must not clobber the row.
	replay := storedFingerprint(at, 0.99)
	require.NoError(t, repo.Insert(ctx, replay))

	got, err := repo.FingerprintAt(ctx, "ADAUSDT", "15m", at)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.52, got.ClosePrice)
	assert.Equal(t, fp.Embedding, got.Embedding)

	count, err = repo.Count(ctx, "ADAUSDT", "15m")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPatternRepoFingerprintAtMissing(t *testing.T) {
	client := newTestClient(t)
	repo := NewPatternRepo(client, zerolog.Nop())

	got, err := repo.FingerprintAt(context.Background(), "ADAUSDT", "15m",
		time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPatternRepoUpdateLabels(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unknown column is skipped without aborting the batch", func(t *testing.T) {
		client := newTestClient(t)
		repo := NewPatternRepo(client, zerolog.Nop())
		require.NoError(t, repo.Insert(ctx, storedFingerprint(at, 0.5)))

		updates := []model.LabelUpdate{
			{TargetTime: at, Column: "close_price; DROP TABLE market_pattern", Value: 1},
			{TargetTime: at, Column: model.LabelNextReturn, Value: 0.0125},
		}
		require.NoError(t, repo.UpdateLabels(ctx, "ADAUSDT", "15m", updates))

		rows, err := repo.RowsByTimes(ctx, "ADAUSDT", "15m", []time.Time{at})
		require.NoError(t, err)
		row, ok := rows[at.Unix()]
		require.True(t, ok)
		require.NotNil(t, row.NextReturn)
		assert.Equal(t, 0.0125, *row.NextReturn)
		assert.Nil(t, row.NextSlope3)
		assert.Nil(t, row.NextSlope5)
	})

	t.Run("update for a missing row is not an error", func(t *testing.T) {
		client := newTestClient(t)
		repo := NewPatternRepo(client, zerolog.Nop())

		updates := []model.LabelUpdate{
			{TargetTime: at, Column: model.LabelNextSlope3, Value: 0.001},
		}
		assert.NoError(t, repo.UpdateLabels(ctx, "ADAUSDT", "15m", updates))
	})
}

func TestPatternRepoBulkSave(t *testing.T) {
	client := newTestClient(t)
	repo := NewPatternRepo(client, zerolog.Nop())
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ret := 0.004
	rows := []feature.BulkRow{
		{Fingerprint: *storedFingerprint(base, 0.50), NextReturn: &ret},
		{Fingerprint: *storedFingerprint(base.Add(15*time.Minute), 0.51)},
	}
	// NaN has no JSON encoding, so this row cannot be persisted.
	bad := storedFingerprint(base.Add(30*time.Minute), 0.52)
	bad.Embedding = []float64{math.NaN()}
	rows = append(rows, feature.BulkRow{Fingerprint: *bad})

	saved, err := repo.BulkSave(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	count, err := repo.Count(ctx, "ADAUSDT", "15m")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Replaying the batch leaves the stored rows untouched.
	_, err = repo.BulkSave(ctx, rows)
	require.NoError(t, err)
	count, err = repo.Count(ctx, "ADAUSDT", "15m")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	hydrated, err := repo.RowsByTimes(ctx, "ADAUSDT", "15m",
		[]time.Time{base, base.Add(15 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, hydrated, 2)
	require.NotNil(t, hydrated[base.Unix()].NextReturn)
	assert.Equal(t, ret, *hydrated[base.Unix()].NextReturn)
	assert.Nil(t, hydrated[base.Add(15*time.Minute).Unix()].NextReturn)
}

func TestPatternRepoRowsByTimesSkipsMissing(t *testing.T) {
	client := newTestClient(t)
	repo := NewPatternRepo(client, zerolog.Nop())
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, storedFingerprint(at, 0.5)))

	rows, err := repo.RowsByTimes(ctx, "ADAUSDT", "15m",
		[]time.Time{at, at.Add(15 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, ok := rows[at.Unix()]
	assert.True(t, ok)
}

func TestCandleRepo(t *testing.T) {
	client := newTestClient(t)
	repo := NewCandleRepo(client, "ADAUSDT", "15m")
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, 5)
	for i := range candles {
		candles[i] = model.Candle{
			Time:  base.Add(time.Duration(i) * 15 * time.Minute),
			Open:  100 + float64(i),
			Close: 101 + float64(i),
		}
	}
	require.NoError(t, repo.InsertBatch(ctx, candles))
	// Overlapping refetches overwrite instead of duplicating.
	require.NoError(t, repo.InsertBatch(ctx, candles[2:]))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	latest, err := repo.GetLatest(ctx, 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, candles[2].Close, latest[0].Close)
	assert.Equal(t, candles[4].Close, latest[2].Close)
	assert.True(t, latest[0].Time.Before(latest[1].Time))
}
