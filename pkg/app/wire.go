// Package app wires configuration into the shared infrastructure the
// commands run on.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/config"
	"github.com/kazetani/hekla/pkg/market"
	"github.com/kazetani/hekla/pkg/store"
	"github.com/kazetani/hekla/pkg/store/duckdb"
	"github.com/kazetani/hekla/pkg/store/milvus"
)

// Stores bundles the persistence layer a command needs.
type Stores struct {
	Patterns    store.PatternStore
	PatternRows *duckdb.PatternRepo
	Candles     *duckdb.CandleRepo
	Milvus      *milvus.Client
	DuckDB      *duckdb.Client
}

// Close releases both backends.
func (s *Stores) Close() {
	if s.Milvus != nil {
		s.Milvus.Close()
	}
	if s.DuckDB != nil {
		s.DuckDB.Close()
	}
}

// BuildStores opens DuckDB and Milvus, ensures schema and collection
// exist, and returns the composite pattern store over them.
func BuildStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	duckClient, err := duckdb.NewClient(cfg.DuckDBPath)
	if err != nil {
		return nil, fmt.Errorf("duckdb: %w", err)
	}
	if err := duckdb.InitializeSchema(ctx, duckClient); err != nil {
		duckClient.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}

	milvusClient, err := milvus.NewClient(ctx, milvus.Config{
		Address:  cfg.MilvusAddress,
		Username: cfg.MilvusUsername,
		Password: cfg.MilvusPassword,
	})
	if err != nil {
		duckClient.Close()
		return nil, fmt.Errorf("milvus: %w", err)
	}

	collCfg := milvus.CollectionConfig{
		Name:      cfg.MilvusCollection,
		Dimension: cfg.Window,
		Shards:    2,
	}
	if err := milvusClient.CreateCollection(ctx, collCfg); err != nil {
		milvusClient.Close()
		duckClient.Close()
		return nil, fmt.Errorf("collection: %w", err)
	}
	if err := milvusClient.CreateIndex(ctx, collCfg.Name, "embedding"); err != nil {
		logger.Warn().Err(err).Msg("index creation failed, continuing")
	}
	if err := milvusClient.LoadCollection(ctx, collCfg.Name); err != nil {
		milvusClient.Close()
		duckClient.Close()
		return nil, fmt.Errorf("load collection: %w", err)
	}

	patterns := duckdb.NewPatternRepo(duckClient, logger)
	composite := store.NewCompositeStore(patterns, milvusClient, cfg.MilvusCollection, cfg.Symbol, cfg.Interval, logger)

	return &Stores{
		Patterns:    composite,
		PatternRows: patterns,
		Candles:     duckdb.NewCandleRepo(duckClient, cfg.Symbol, cfg.Interval),
		Milvus:      milvusClient,
		DuckDB:      duckClient,
	}, nil
}

// Reset wipes both backends so a backfill can rebuild the series from
// scratch. BuildStores recreates the schema and collection afterwards.
func Reset(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	duckClient, err := duckdb.NewClient(cfg.DuckDBPath)
	if err != nil {
		return fmt.Errorf("duckdb: %w", err)
	}
	defer duckClient.Close()
	if err := duckdb.DropAllTables(ctx, duckClient); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	milvusClient, err := milvus.NewClient(ctx, milvus.Config{
		Address:  cfg.MilvusAddress,
		Username: cfg.MilvusUsername,
		Password: cfg.MilvusPassword,
	})
	if err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	defer milvusClient.Close()

	exists, err := milvusClient.HasCollection(ctx, cfg.MilvusCollection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		if err := milvusClient.DropCollection(ctx, cfg.MilvusCollection); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	logger.Info().Str("collection", cfg.MilvusCollection).Msg("stores reset")
	return nil
}

// BuildSource picks the candle source: CSV when configured, otherwise
// the exchange.
func BuildSource(cfg *config.Config, logger zerolog.Logger) market.Source {
	if cfg.CSVPath != "" {
		return market.NewCSVSource(cfg.CSVPath)
	}
	return market.NewBinanceSource(cfg.BinanceAPIKey, cfg.BinanceSecretKey, logger)
}
