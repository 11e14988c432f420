package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kazetani/hekla/pkg/app"
	"github.com/kazetani/hekla/pkg/config"
	"github.com/kazetani/hekla/pkg/decision"
	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/ingest"
	"github.com/kazetani/hekla/pkg/judge"
	"github.com/kazetani/hekla/pkg/logging"
	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/notify"
	"github.com/kazetani/hekla/pkg/retrieve"
)

// recentCloseCount is how many recent closes go into the judgment
// prompt.
const recentCloseCount = 10

func main() {
	var (
		timeStr   = flag.String("time", "", "target timestamp (RFC3339, default now)")
		runIngest = flag.Bool("ingest", false, "ingest the target window before judging")
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

	step, err := ingest.ParseInterval(cfg.Interval)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid interval")
	}
	target = ingest.SnapToInterval(target, step)

	ctx := context.Background()

	stores, err := app.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stores")
	}
	defer stores.Close()

	builder := feature.NewBuilder(cfg.Symbol, cfg.Interval, cfg.Window)

	if *runIngest {
		source := app.BuildSource(cfg, logger)
		flow, err := ingest.NewFlow(source, stores.Patterns, builder, stores.Candles, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build flow")
		}
		fp, err := flow.IngestOnce(ctx, target)
		if err != nil {
			logger.Fatal().Err(err).Msg("ingest failed")
		}
		// The last closed candle may sit one interval before the
		// snapped target; query where the fingerprint actually landed.
		target = fp.Time
	}

	retriever := retrieve.NewRetriever(stores.Patterns, cfg.TopK, logger)
	result, err := retriever.FindSimilar(ctx, target)
	if err != nil {
		logger.Fatal().Err(err).Msg("similarity lookup failed")
	}
	if len(result.Neighbors) == 0 {
		logger.Info().Time("time", target).Msg("no neighbors found, holding")
		printDecision(&model.Decision{Signal: model.SignalHold, Rationale: "no comparable history"})
		return
	}

	gate := retrieve.NewGate(cfg.GateMaxDistance)
	ok, meanDist := gate.Check(result.Neighbors)
	if !ok {
		logger.Info().
			Float64("mean_distance", meanDist).
			Float64("ceiling", cfg.GateMaxDistance).
			Msg("match set too loose, holding")
		printDecision(&model.Decision{Signal: model.SignalHold, Rationale: "no sufficiently similar history"})
		return
	}

	judgeClient, err := judge.NewClient(judge.Config{
		APIKey:  cfg.AnthropicAPIKey,
		Model:   cfg.AnthropicModel,
		Timeout: cfg.JudgeTimeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build judge")
	}

	recent, err := stores.Candles.GetLatest(ctx, recentCloseCount)
	if err != nil {
		logger.Warn().Err(err).Msg("could not load recent closes")
	}

	ev := decision.Evidence{
		Symbol:       cfg.Symbol,
		Interval:     cfg.Interval,
		QueryTime:    target,
		Neighbors:    result.Neighbors,
		Consensus:    decision.Summarize(result.Neighbors),
		RecentCloses: model.Closes(recent),
	}

	decider := decision.NewDecider(judgeClient.Judge, cfg.ConfidenceThreshold, logger)
	dec := decider.Decide(ctx, ev)
	if dec == nil {
		logger.Error().Msg("no decision produced")
		os.Exit(1)
	}

	notifier := notify.NewDiscord(cfg.DiscordWebhookURL, logger)
	if err := notifier.NotifyDecision(ctx, cfg.Symbol, target, dec); err != nil {
		logger.Warn().Err(err).Msg("notification failed")
	}

	printDecision(dec)
}

func printDecision(dec *model.Decision) {
	out, _ := json.Marshal(dec)
	fmt.Println(string(out))
}
