package duckdb

import (
	"context"
	"fmt"
)

// CreateCandlesTable creates the raw OHLCV fact table.
const CreateCandlesTable = `
CREATE TABLE IF NOT EXISTS candles (
    symbol VARCHAR NOT NULL,
    interval VARCHAR NOT NULL,
    time TIMESTAMP NOT NULL,
    open DOUBLE,
    high DOUBLE,
    low DOUBLE,
    close DOUBLE,
    volume DOUBLE,
    PRIMARY KEY (symbol, interval, time)
);
`

// CreateMarketPatternTable creates the fingerprint table. The embedding is
// stored in its text form (see pkg/vector); label columns stay NULL until
// enough future candles exist to realize them.
const CreateMarketPatternTable = `
CREATE TABLE IF NOT EXISTS market_pattern (
    time TIMESTAMP NOT NULL,
    symbol VARCHAR NOT NULL,
    interval VARCHAR NOT NULL,
    embedding VARCHAR,
    close_price DOUBLE,
    next_return DOUBLE,
    next_slope_3 DOUBLE,
    next_slope_5 DOUBLE,
    PRIMARY KEY (time, symbol, interval)
);

CREATE INDEX IF NOT EXISTS idx_market_pattern_symbol_time ON market_pattern(symbol, time);
`

// InitializeSchema creates all required tables
func InitializeSchema(ctx context.Context, c *Client) error {
	schemas := []string{
		CreateCandlesTable,
		CreateMarketPatternTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(ctx context.Context, c *Client) error {
	for _, table := range []string{"market_pattern", "candles"} {
		if err := c.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
