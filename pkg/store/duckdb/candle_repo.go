package duckdb

import (
	"context"
	"fmt"

	"github.com/kazetani/hekla/pkg/model"
)

// CandleRepo handles candle data persistence
type CandleRepo struct {
	client   *Client
	symbol   string
	interval string
}

// NewCandleRepo creates a new candle repository scoped to one series.
func NewCandleRepo(client *Client, symbol, interval string) *CandleRepo {
	return &CandleRepo{client: client, symbol: symbol, interval: interval}
}

const upsertCandle = `
	INSERT INTO candles (symbol, interval, time, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, interval, time) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume
`

// Insert inserts a single candle, overwriting an existing row for the
// same natural key.
func (r *CandleRepo) Insert(ctx context.Context, c model.Candle) error {
	return r.client.Exec(ctx, upsertCandle,
		r.symbol, r.interval, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume,
	)
}

// InsertBatch inserts multiple candles in a transaction
func (r *CandleRepo) InsertBatch(ctx context.Context, candles []model.Candle) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertCandle)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx,
			r.symbol, r.interval, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	return tx.Commit()
}

// GetLatest retrieves the most recent N candles in chronological order.
func (r *CandleRepo) GetLatest(ctx context.Context, limit int) ([]model.Candle, error) {
	query := `
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ?
		ORDER BY time DESC
		LIMIT ?
	`

	rows, err := r.client.Query(ctx, query, r.symbol, r.interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// Count returns the total number of candles for the series.
func (r *CandleRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx,
		"SELECT COUNT(*) FROM candles WHERE symbol = ? AND interval = ?",
		r.symbol, r.interval,
	)
	err := row.Scan(&count)
	return count, err
}
