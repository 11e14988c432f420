package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/vector"
)

// labelColumns is the set of columns UpdateLabels is allowed to touch.
var labelColumns = map[string]bool{
	model.LabelNextReturn: true,
	model.LabelNextSlope3: true,
	model.LabelNextSlope5: true,
}

// PatternRepo handles market pattern persistence in DuckDB. Embeddings
// are stored as text and go through the vector codec on both paths.
type PatternRepo struct {
	client *Client
	logger zerolog.Logger
}

// NewPatternRepo creates a new pattern repository.
func NewPatternRepo(client *Client, logger zerolog.Logger) *PatternRepo {
	return &PatternRepo{client: client, logger: logger.With().Str("component", "pattern_repo").Logger()}
}

const insertPattern = `
	INSERT INTO market_pattern (time, symbol, interval, embedding, close_price)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (time, symbol, interval) DO NOTHING
`

// Insert stores a fingerprint. Re-inserting the same (time, symbol,
// interval) is a no-op.
func (r *PatternRepo) Insert(ctx context.Context, fp *model.Fingerprint) error {
	encoded, err := vector.Encode(fp.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	err = r.client.Exec(ctx, insertPattern,
		fp.Time, fp.Symbol, fp.Interval, encoded, fp.ClosePrice,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pattern: %w", err)
	}
	return nil
}

// UpdateLabels applies label updates to existing rows. Updates naming a
// column outside the label allow-list are skipped with a warning; a
// bad column never aborts the rest of the batch. Updates targeting a
// row that does not exist affect zero rows and are not an error.
func (r *PatternRepo) UpdateLabels(ctx context.Context, symbol, interval string, updates []model.LabelUpdate) error {
	for _, u := range updates {
		if !labelColumns[u.Column] {
			r.logger.Warn().
				Str("column", u.Column).
				Time("target_time", u.TargetTime).
				Msg("skipping update for unknown label column")
			continue
		}

		query := fmt.Sprintf(
			"UPDATE market_pattern SET %s = ? WHERE time = ? AND symbol = ? AND interval = ?",
			u.Column,
		)
		if err := r.client.Exec(ctx, query, u.Value, u.TargetTime, symbol, interval); err != nil {
			return fmt.Errorf("failed to update label %s: %w", u.Column, err)
		}
	}
	return nil
}

const insertPatternWithLabels = `
	INSERT INTO market_pattern (time, symbol, interval, embedding, close_price, next_return, next_slope_3, next_slope_5)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (time, symbol, interval) DO NOTHING
`

// BulkSave stores fully labeled rows from a bulk backfill. A row that
// fails to encode is logged and skipped so one bad row does not sink
// the whole batch.
func (r *PatternRepo) BulkSave(ctx context.Context, rows []feature.BulkRow) (int, error) {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertPatternWithLabels)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, row := range rows {
		encoded, err := vector.Encode(row.Fingerprint.Embedding)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Time("time", row.Fingerprint.Time).
				Msg("skipping row with unencodable embedding")
			continue
		}

		_, err = stmt.ExecContext(ctx,
			row.Fingerprint.Time,
			row.Fingerprint.Symbol,
			row.Fingerprint.Interval,
			encoded,
			row.Fingerprint.ClosePrice,
			nullableFloat(row.NextReturn),
			nullableFloat(row.NextSlope3),
			nullableFloat(row.NextSlope5),
		)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Time("time", row.Fingerprint.Time).
				Msg("skipping row that failed to insert")
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk save: %w", err)
	}
	return saved, nil
}

// FingerprintAt retrieves the fingerprint stored at an exact timestamp.
// Returns (nil, nil) when no row exists.
func (r *PatternRepo) FingerprintAt(ctx context.Context, symbol, interval string, t time.Time) (*model.Fingerprint, error) {
	query := `
		SELECT time, symbol, interval, embedding, close_price
		FROM market_pattern
		WHERE symbol = ? AND interval = ? AND time = ?
	`

	var (
		fp  model.Fingerprint
		raw string
	)
	row := r.client.QueryRow(ctx, query, symbol, interval, t)
	err := row.Scan(&fp.Time, &fp.Symbol, &fp.Interval, &raw, &fp.ClosePrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprint: %w", err)
	}

	fp.Embedding, err = vector.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding at %s: %w", t, err)
	}
	return &fp, nil
}

// LabeledRow is a stored pattern row with its label columns, as read
// back for neighbor attachment.
type LabeledRow struct {
	Time       time.Time
	Embedding  []float64
	ClosePrice float64
	NextReturn *float64
	NextSlope3 *float64
	NextSlope5 *float64
}

// RowsByTimes retrieves stored rows for the given timestamps, keyed by
// unix time. A row whose embedding fails to decode is logged and
// omitted from the result.
func (r *PatternRepo) RowsByTimes(ctx context.Context, symbol, interval string, times []time.Time) (map[int64]LabeledRow, error) {
	result := make(map[int64]LabeledRow, len(times))
	if len(times) == 0 {
		return result, nil
	}

	query := `
		SELECT time, embedding, close_price, next_return, next_slope_3, next_slope_5
		FROM market_pattern
		WHERE symbol = ? AND interval = ? AND time = ?
	`

	for _, t := range times {
		var (
			lr  LabeledRow
			raw string
			nr  sql.NullFloat64
			s3  sql.NullFloat64
			s5  sql.NullFloat64
		)
		row := r.client.QueryRow(ctx, query, symbol, interval, t)
		err := row.Scan(&lr.Time, &raw, &lr.ClosePrice, &nr, &s3, &s5)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query row at %s: %w", t, err)
		}

		lr.Embedding, err = vector.Decode(raw)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Time("time", t).
				Msg("dropping row with malformed embedding")
			continue
		}

		if nr.Valid {
			v := nr.Float64
			lr.NextReturn = &v
		}
		if s3.Valid {
			v := s3.Float64
			lr.NextSlope3 = &v
		}
		if s5.Valid {
			v := s5.Float64
			lr.NextSlope5 = &v
		}

		result[lr.Time.Unix()] = lr
	}

	return result, nil
}

// Count returns the number of stored patterns for the series.
func (r *PatternRepo) Count(ctx context.Context, symbol, interval string) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx,
		"SELECT COUNT(*) FROM market_pattern WHERE symbol = ? AND interval = ?",
		symbol, interval,
	)
	err := row.Scan(&count)
	return count, err
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
