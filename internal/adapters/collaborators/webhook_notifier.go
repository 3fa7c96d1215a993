package collaborators

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookNotifier delivers alert notifications by POSTing the payload to a
// per-channel webhook URL. Delivery retries live here; the escalator's claim
// flags only guard against double dispatch, not against transient failures.
type WebhookNotifier struct {
	client      *http.Client
	endpoints   map[string]string
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
}

func NewWebhookNotifier(logger *slog.Logger, endpoints map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		client:      &http.Client{Timeout: 10 * time.Second},
		endpoints:   endpoints,
		maxAttempts: 3,
		backoffBase: 500 * time.Millisecond,
		logger:      logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, channel string, alertID uuid.UUID, payload []byte) error {
	url, ok := n.endpoints[channel]
	if !ok || url == "" {
		return fmt.Errorf("no endpoint configured for channel %q", channel)
	}

	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.backoffBase << (attempt - 2)):
			}
		}

		lastErr = n.post(ctx, url, channel, alertID, payload)
		if lastErr == nil {
			return nil
		}
		n.logger.WarnContext(ctx, "notification dispatch failed",
			"module", "collaborators.webhook_notifier",
			"layer", "adapter",
			"operation", "notify",
			"outcome", "failure",
			"channel", channel,
			"alert_id", alertID,
			"attempt", attempt,
			"error", lastErr,
		)
	}
	return fmt.Errorf("notify %s after %d attempts: %w", channel, n.maxAttempts, lastErr)
}

func (n *WebhookNotifier) post(ctx context.Context, url, channel string, alertID uuid.UUID, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-ID", alertID.String())
	req.Header.Set("X-Channel", channel)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
