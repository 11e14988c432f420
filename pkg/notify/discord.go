// Package notify posts trading decisions to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/model"
)

// Discord posts messages to a webhook URL. A zero-value URL disables
// notifications.
type Discord struct {
	webhookURL string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDiscord creates a Discord notifier.
func NewDiscord(webhookURL string, logger zerolog.Logger) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "notify").Logger(),
	}
}

// Enabled reports whether a webhook is configured.
func (d *Discord) Enabled() bool {
	return d.webhookURL != ""
}

// NotifyDecision posts a decision summary. Disabled notifiers return
// nil without sending.
func (d *Discord) NotifyDecision(ctx context.Context, symbol string, at time.Time, dec *model.Decision) error {
	if !d.Enabled() {
		return nil
	}

	var content string
	if dec == nil {
		content = fmt.Sprintf("**%s** @ %s\nNo decision (judgment unavailable)",
			symbol, at.UTC().Format("2006-01-02 15:04"))
	} else {
		content = fmt.Sprintf("**%s** @ %s\nSignal: **%s**  Confidence: %.0f%%\n%s",
			symbol, at.UTC().Format("2006-01-02 15:04"),
			dec.Signal, dec.Confidence*100, dec.Rationale)
	}

	return d.send(ctx, content)
}

func (d *Discord) send(ctx context.Context, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	d.logger.Debug().Msg("notification sent")
	return nil
}
