package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kazetani/hekla/pkg/app"
	"github.com/kazetani/hekla/pkg/config"
	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/ingest"
	"github.com/kazetani/hekla/pkg/logging"
	natsq "github.com/kazetani/hekla/pkg/queue/nats"
	"github.com/kazetani/hekla/pkg/store"
)

func main() {
	var (
		timeStr  = flag.String("time", "", "target timestamp (RFC3339, default now)")
		useQueue = flag.Bool("queue", false, "publish writes to NATS instead of writing directly")
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

	target := time.Now()
	if *timeStr != "" {
		target, err = time.Parse(time.RFC3339, *timeStr)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -time")
		}
	}

	ctx := context.Background()

	stores, err := app.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stores")
	}
	defer stores.Close()

	var patternStore store.PatternStore = stores.Patterns
	if *useQueue {
		queue, err := natsq.NewClient(natsq.Config{
			URL:           cfg.NATSURL,
			StreamName:    cfg.NATSStream,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer queue.Close()

		subjects := []string{natsq.SubjectPatternWrite, natsq.SubjectLabelWrite}
		if err := queue.CreateStream(ctx, subjects); err != nil {
			logger.Fatal().Err(err).Msg("failed to create stream")
		}
		patternStore = natsq.NewPublishStore(queue, stores.Patterns)
	}

	source := app.BuildSource(cfg, logger)
	builder := feature.NewBuilder(cfg.Symbol, cfg.Interval, cfg.Window)

	flow, err := ingest.NewFlow(source, patternStore, builder, stores.Candles, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build flow")
	}

	if _, err := flow.IngestOnce(ctx, target); err != nil {
		logger.Fatal().Err(err).Msg("ingest failed")
	}
}
