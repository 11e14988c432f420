package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/kazetani/hekla/pkg/app"
	"github.com/kazetani/hekla/pkg/config"
	"github.com/kazetani/hekla/pkg/logging"
	natsq "github.com/kazetani/hekla/pkg/queue/nats"
)

func main() {
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

	ctx := context.Background()

	stores, err := app.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stores")
	}
	defer stores.Close()

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

	patternCtx, err := queue.Subscribe(ctx, natsq.SubjectPatternWrite, "hekla-pattern-writer", func(msg jetstream.Msg) error {
		m, err := natsq.DecodePatternWrite(msg.Data())
		if err != nil {
			logger.Error().Err(err).Msg("bad pattern write message")
			return nil // Poison message, ack and move on
		}
		if m.Fingerprint != nil {
			if err := stores.Patterns.Upsert(ctx, m.Fingerprint); err != nil {
				return err
			}
		}
		if len(m.Labels) > 0 {
			if err := stores.Patterns.UpdateLabels(ctx, m.Labels); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to pattern writes")
	}
	defer patternCtx.Stop()

	labelCtx, err := queue.Subscribe(ctx, natsq.SubjectLabelWrite, "hekla-label-writer", func(msg jetstream.Msg) error {
		m, err := natsq.DecodeLabelWrite(msg.Data())
		if err != nil {
			logger.Error().Err(err).Msg("bad label write message")
			return nil
		}
		return stores.Patterns.UpdateLabels(ctx, m.Labels)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to label writes")
	}
	defer labelCtx.Stop()

	logger.Info().
		Str("stream", cfg.NATSStream).
		Bool("connected", queue.IsConnected()).
		Msg("writer running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutting down")
}
