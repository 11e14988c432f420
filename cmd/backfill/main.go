package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/app"
	"github.com/kazetani/hekla/pkg/config"
	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/ingest"
	"github.com/kazetani/hekla/pkg/logging"
)

func main() {
	var (
		endStr      = flag.String("end", "", "end of the backfill range (RFC3339, default now)")
		rows        = flag.Int("rows", 5000, "number of candles to fetch for the bulk pass")
		incremental = flag.Bool("incremental", false, "replay step by step instead of one bulk pass")
		startStr    = flag.String("start", "", "start of the incremental range (RFC3339)")
		reset       = flag.Bool("reset", false, "drop stored candles, patterns and the vector collection first")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	end := time.Now()
	if *endStr != "" {
		end, err = time.Parse(time.RFC3339, *endStr)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -end")
		}
	}

	ctx := context.Background()

	if *reset {
		if err := app.Reset(ctx, cfg, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to reset stores")
		}
	}

	stores, err := app.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stores")
	}
	defer stores.Close()

	source := app.BuildSource(cfg, logger)
	builder := feature.NewBuilder(cfg.Symbol, cfg.Interval, cfg.Window)

	flow, err := ingest.NewFlow(source, stores.Patterns, builder, stores.Candles, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build flow")
	}

	if *incremental {
		if *startStr == "" {
			logger.Fatal().Msg("-start is required with -incremental")
		}
		start, err := time.Parse(time.RFC3339, *startStr)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -start")
		}

		done, err := flow.Backfill(ctx, start, end)
		if err != nil {
			logger.Fatal().Err(err).Int("done", done).Msg("backfill aborted")
		}
		logger.Info().Int("steps", done).Msg("incremental backfill finished")
		logTotals(ctx, cfg, stores, logger)
		return
	}

	saved, err := flow.BackfillBulk(ctx, end, *rows)
	if err != nil {
		logger.Fatal().Err(err).Msg("bulk backfill failed")
	}
	logger.Info().Int("saved", saved).Msg("bulk backfill finished")
	logTotals(ctx, cfg, stores, logger)
}

func logTotals(ctx context.Context, cfg *config.Config, stores *app.Stores, logger zerolog.Logger) {
	candles, err := stores.Candles.Count(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to count candles")
		return
	}
	patterns, err := stores.PatternRows.Count(ctx, cfg.Symbol, cfg.Interval)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to count patterns")
		return
	}
	logger.Info().
		Int64("candles", candles).
		Int64("patterns", patterns).
		Msg("store totals")
}
