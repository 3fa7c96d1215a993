package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mindhaven/support-core/internal/application"
)

// AlertArchiver marks resolved alerts past the retention window as archived.
// Alerts are clinical audit records: they are retained, never hard-deleted.
type AlertArchiver struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewAlertArchiver(logger *slog.Logger, service *application.Service, interval time.Duration) *AlertArchiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AlertArchiver{logger: logger, service: service, interval: interval}
}

// Run executes the periodic archive loop until context cancellation.
func (w *AlertArchiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		archived, err := w.service.ArchiveAlerts(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "alert archive failed",
				"module", "worker.archiver",
				"layer", "adapter",
				"operation", "archive_alerts",
				"outcome", "failure",
				"error", err,
			)
		} else if archived > 0 {
			w.logger.InfoContext(ctx, "alerts archived",
				"module", "worker.archiver",
				"layer", "adapter",
				"operation", "archive_alerts",
				"outcome", "success",
				"archived_count", archived,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
