package collaborators

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LoggingNotifier records notifications to the structured log. It stands in
// for real channels in local and test environments.
type LoggingNotifier struct {
	logger *slog.Logger
}

func NewLoggingNotifier(logger *slog.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

func (n *LoggingNotifier) Notify(ctx context.Context, channel string, alertID uuid.UUID, payload []byte) error {
	n.logger.InfoContext(ctx, "notification dispatched",
		"module", "collaborators.logging_notifier",
		"layer", "adapter",
		"operation", "notify",
		"outcome", "success",
		"channel", channel,
		"alert_id", alertID,
		"payload", string(payload),
	)
	return nil
}
