package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultCollectionName is the default collection name for market patterns
	DefaultCollectionName = "market_pattern"
)

// CollectionConfig holds configuration for creating a collection
type CollectionConfig struct {
	Name      string
	Dimension int // Vector dimension (matches the feature window)
	Shards    int // Number of shards
}

// DefaultCollectionConfig returns default collection configuration
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		Name:      DefaultCollectionName,
		Dimension: 60,
		Shards:    2,
	}
}

// CreateCollection creates the market_pattern collection
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	exists, err := c.HasCollection(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil // Collection already exists
	}

	schema := &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "Normalized price pattern embeddings for similarity search",
		Fields: []*entity.Field{
			{
				Name:       "pattern_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", cfg.Dimension),
				},
			},
			{
				Name:     "symbol",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "interval",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8",
				},
			},
			{
				Name:     "t_end",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = c.conn.CreateCollection(ctx, schema, int32(cfg.Shards))
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// PatternData holds data for inserting a pattern into Milvus
type PatternData struct {
	PatternID string
	Embedding []float32
	Symbol    string
	Interval  string
	TEnd      time.Time
}

// Insert writes a single pattern embedding
func (c *Client) Insert(ctx context.Context, collectionName string, data *PatternData) error {
	return c.InsertBatch(ctx, collectionName, []*PatternData{data})
}

// InsertBatch writes multiple pattern embeddings. Writes go through
// Upsert so a repeated pattern_id replaces the existing entity instead
// of creating a duplicate.
func (c *Client) InsertBatch(ctx context.Context, collectionName string, dataList []*PatternData) error {
	if len(dataList) == 0 {
		return nil
	}

	patternIDs := make([]string, len(dataList))
	embeddings := make([][]float32, len(dataList))
	symbols := make([]string, len(dataList))
	intervals := make([]string, len(dataList))
	tEnds := make([]int64, len(dataList))

	for i, d := range dataList {
		patternIDs[i] = d.PatternID
		embeddings[i] = d.Embedding
		symbols[i] = d.Symbol
		intervals[i] = d.Interval
		tEnds[i] = d.TEnd.Unix()
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("pattern_id", patternIDs),
		entity.NewColumnFloatVector("embedding", len(embeddings[0]), embeddings),
		entity.NewColumnVarChar("symbol", symbols),
		entity.NewColumnVarChar("interval", intervals),
		entity.NewColumnInt64("t_end", tEnds),
	}

	_, err := c.conn.Upsert(ctx, collectionName, "", columns...)
	if err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}

	return nil
}

// SearchResult represents a single search result
type SearchResult struct {
	PatternID string
	Score     float32
	Symbol    string
	Interval  string
	TEnd      time.Time
}

// Search performs a TopK similarity search. The filter expression is
// passed through to Milvus, e.g. `symbol == "BTCUSDT" && t_end < 123`.
func (c *Client) Search(ctx context.Context, collectionName string, embedding []float32, filter string, topK int) ([]SearchResult, error) {
	vectors := []entity.Vector{entity.FloatVector(embedding)}

	sp, err := entity.NewIndexIvfFlatSearchParam(16) // nprobe
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	outputFields := []string{"pattern_id", "symbol", "interval", "t_end"}

	results, err := c.conn.Search(
		ctx,
		collectionName,
		nil,
		filter,
		outputFields,
		vectors,
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	searchResults := make([]SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		result := SearchResult{
			Score: results[0].Scores[i],
		}

		for _, field := range results[0].Fields {
			switch field.Name() {
			case "pattern_id":
				if col, ok := field.(*entity.ColumnVarChar); ok {
					val, _ := col.ValueByIdx(i)
					result.PatternID = val
				}
			case "symbol":
				if col, ok := field.(*entity.ColumnVarChar); ok {
					val, _ := col.ValueByIdx(i)
					result.Symbol = val
				}
			case "interval":
				if col, ok := field.(*entity.ColumnVarChar); ok {
					val, _ := col.ValueByIdx(i)
					result.Interval = val
				}
			case "t_end":
				if col, ok := field.(*entity.ColumnInt64); ok {
					val, _ := col.ValueByIdx(i)
					result.TEnd = time.Unix(val, 0)
				}
			}
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// Flush flushes the collection to ensure data persistence
func (c *Client) Flush(ctx context.Context, collectionName string) error {
	return c.conn.Flush(ctx, collectionName, false)
}
