// Package ingest drives the fingerprint pipeline: fetch candles, build
// the feature for the latest window, persist it, and label the rows
// the new candle completes.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/market"
	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/store"
)

// CandleSink optionally receives raw candles as they are fetched.
type CandleSink interface {
	InsertBatch(ctx context.Context, candles []model.Candle) error
}

// Flow wires a candle source to the pattern store through the feature
// builder.
type Flow struct {
	source   market.Source
	store    store.PatternStore
	builder  *feature.Builder
	interval time.Duration
	candles  CandleSink // optional
	logger   zerolog.Logger
}

// NewFlow creates an ingestion flow. sink may be nil when raw candles
// need not be kept.
func NewFlow(source market.Source, st store.PatternStore, builder *feature.Builder, sink CandleSink, logger zerolog.Logger) (*Flow, error) {
	step, err := ParseInterval(builder.Interval)
	if err != nil {
		return nil, err
	}
	return &Flow{
		source:   source,
		store:    st,
		builder:  builder,
		interval: step,
		candles:  sink,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}, nil
}

// labelLookback covers the five forward closes the slope_5 label
// reaches back for.
const labelLookback = 5

// IngestOnce processes a single target timestamp: snap it to the
// interval grid, fetch enough history, store the fingerprint ending at
// the last closed candle, and fill in the labels this candle resolves
// for earlier rows. It returns the stored fingerprint; exchange-backed
// sources may place it one interval before the snapped target.
func (f *Flow) IngestOnce(ctx context.Context, target time.Time) (*model.Fingerprint, error) {
	snapped := SnapToInterval(target, f.interval)

	// window+1 candles make the feature; the extra lookback lets the
	// label pass reach rows up to five steps back.
	need := f.builder.Window + 1 + labelLookback
	candles, err := f.source.GetData(ctx, f.builder.Symbol, snapped, f.builder.Interval, need)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles: %w", err)
	}
	if len(candles) < f.builder.Window+1 {
		return nil, fmt.Errorf("not enough history at %s: have %d, need %d",
			snapped, len(candles), f.builder.Window+1)
	}

	if f.candles != nil {
		if err := f.candles.InsertBatch(ctx, candles); err != nil {
			return nil, fmt.Errorf("failed to persist candles: %w", err)
		}
	}

	// The feature uses the trailing window+1 candles only.
	tail := candles[len(candles)-(f.builder.Window+1):]
	fp := f.builder.Build(tail)
	if fp == nil {
		return nil, fmt.Errorf("failed to build fingerprint at %s", snapped)
	}
	if err := f.store.Upsert(ctx, fp); err != nil {
		return nil, fmt.Errorf("failed to store fingerprint: %w", err)
	}

	updates := f.builder.Labels(candles)
	if err := f.store.UpdateLabels(ctx, updates); err != nil {
		return nil, fmt.Errorf("failed to update labels: %w", err)
	}

	f.logger.Info().
		Time("time", fp.Time).
		Float64("close", fp.ClosePrice).
		Int("labels", len(updates)).
		Msg("ingested fingerprint")
	return fp, nil
}

// Backfill replays IngestOnce across [start, end] on the interval
// grid. It keeps going past individual failures and returns how many
// steps succeeded.
func (f *Flow) Backfill(ctx context.Context, start, end time.Time) (int, error) {
	cursor := SnapToInterval(start, f.interval)
	end = SnapToInterval(end, f.interval)

	done := 0
	for !cursor.After(end) {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := f.IngestOnce(ctx, cursor); err != nil {
			f.logger.Warn().Err(err).Time("time", cursor).Msg("backfill step failed")
		} else {
			done++
		}
		cursor = cursor.Add(f.interval)
	}
	return done, nil
}

// BackfillBulk fetches the whole range in one pass and saves every
// window with its labels precomputed. Rows whose forward candles fall
// past the end of the range keep those labels unset.
func (f *Flow) BackfillBulk(ctx context.Context, end time.Time, totalRows int) (int, error) {
	snapped := SnapToInterval(end, f.interval)

	candles, err := f.source.GetData(ctx, f.builder.Symbol, snapped, f.builder.Interval, totalRows)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch candles: %w", err)
	}
	if len(candles) < f.builder.Window+1 {
		return 0, fmt.Errorf("not enough history: have %d, need %d",
			len(candles), f.builder.Window+1)
	}

	if f.candles != nil {
		if err := f.candles.InsertBatch(ctx, candles); err != nil {
			return 0, fmt.Errorf("failed to persist candles: %w", err)
		}
	}

	rows := feature.NewBulkEngine(f.builder).Run(candles)
	saved, err := f.store.BulkSave(ctx, rows)
	if err != nil {
		return saved, fmt.Errorf("failed to save bulk rows: %w", err)
	}

	f.logger.Info().
		Int("candles", len(candles)).
		Int("rows", len(rows)).
		Int("saved", saved).
		Msg("bulk backfill complete")
	return saved, nil
}
