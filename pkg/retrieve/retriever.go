// Package retrieve looks up historical patterns similar to a stored
// fingerprint and gates on how tight the match set is.
package retrieve

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/store"
)

// DefaultTopK is the default number of neighbors requested per lookup.
const DefaultTopK = 5

// Result holds the outcome of one similarity lookup.
type Result struct {
	// QueryTime is the fingerprint timestamp the lookup ran for.
	QueryTime time.Time
	// QueryEmbedding is the stored embedding the search used.
	QueryEmbedding []float64
	// Neighbors are the matched historical patterns, closest first.
	Neighbors []model.NeighborMatch
}

// Retriever finds historical patterns similar to a stored fingerprint.
type Retriever struct {
	store  store.PatternStore
	topK   int
	logger zerolog.Logger
}

// NewRetriever creates a retriever. topK <= 0 falls back to DefaultTopK.
func NewRetriever(s store.PatternStore, topK int, logger zerolog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		store:  s,
		topK:   topK,
		logger: logger.With().Str("component", "retriever").Logger(),
	}
}

// FindSimilar looks up the fingerprint stored at t and searches for its
// nearest historical neighbors, restricted to patterns strictly before
// t. When no fingerprint is stored at t the result is empty, not an
// error.
func (r *Retriever) FindSimilar(ctx context.Context, t time.Time) (*Result, error) {
	fp, err := r.store.FingerprintAt(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprint: %w", err)
	}
	if fp == nil {
		r.logger.Debug().Time("time", t).Msg("no fingerprint stored, empty result")
		return &Result{QueryTime: t}, nil
	}

	neighbors, err := r.store.FindNeighbors(ctx, fp.Embedding, fp.Time, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to find neighbors: %w", err)
	}

	r.logger.Debug().
		Time("time", t).
		Int("neighbors", len(neighbors)).
		Msg("similarity lookup complete")

	return &Result{
		QueryTime:      t,
		QueryEmbedding: fp.Embedding,
		Neighbors:      neighbors,
	}, nil
}
