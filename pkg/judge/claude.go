// Package judge asks Claude to turn retrieval evidence into a trading
// signal with a confidence and rationale.
package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/decision"
	"github.com/kazetani/hekla/pkg/model"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"
	// DefaultTimeout bounds a single judgment call.
	DefaultTimeout = 60 * time.Second

	defaultMaxTokens = 1024
)

// Config holds judge configuration.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls the Anthropic API to judge retrieval evidence.
type Client struct {
	api     anthropic.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a judge client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		api:     anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "judge").Logger(),
	}, nil
}

// Judge sends the evidence to the model and parses its verdict. It
// satisfies decision.JudgmentFunc.
func (c *Client) Judge(ctx context.Context, ev decision.Evidence) (*model.Decision, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(BuildPrompt(ev)),
	}
	if len(ev.Snapshot) > 0 {
		encoded := base64.StdEncoding.EncodeToString(ev.Snapshot)
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", encoded))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	start := time.Now()
	resp, err := c.api.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	dec, err := parseJudgment(text.String())
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("signal", string(dec.Signal)).
		Float64("confidence", dec.Confidence).
		Dur("duration", time.Since(start)).
		Msg("judgment received")

	return dec, nil
}

// judgment is the JSON shape the model is asked to return.
type judgment struct {
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// parseJudgment extracts a decision from the model's reply. Code
// fences are stripped and a percent-scale confidence is normalized to
// a fraction.
func parseJudgment(raw string) (*model.Decision, error) {
	cleaned := stripFences(raw)

	var j judgment
	if err := json.Unmarshal([]byte(cleaned), &j); err != nil {
		return nil, fmt.Errorf("failed to parse judgment %q: %w", truncate(raw, 200), err)
	}

	confidence := j.Confidence
	if confidence > 1 {
		confidence /= 100
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &model.Decision{
		Signal:     model.Signal(strings.ToUpper(strings.TrimSpace(j.Signal))),
		Confidence: confidence,
		Rationale:  strings.TrimSpace(j.Reasoning),
	}, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
