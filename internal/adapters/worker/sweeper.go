package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mindhaven/support-core/internal/application"
)

// SweepWorker periodically expires stale sessions and garbage-collects
// refresh tokens past their retention window.
type SweepWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewSweepWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepWorker{logger: logger, service: service, interval: interval}
}

// Run executes the periodic sweep loop until context cancellation.
func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *SweepWorker) sweepOnce(ctx context.Context) {
	sessions, err := w.service.SweepSessions(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "session sweep failed",
			"module", "worker.sweeper",
			"layer", "adapter",
			"operation", "sweep_sessions",
			"outcome", "failure",
			"error", err,
		)
	}

	tokens, err := w.service.SweepRefreshTokens(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "refresh token sweep failed",
			"module", "worker.sweeper",
			"layer", "adapter",
			"operation", "sweep_refresh_tokens",
			"outcome", "failure",
			"error", err,
		)
	}

	if sessions > 0 || tokens > 0 {
		w.logger.InfoContext(ctx, "sweep completed",
			"module", "worker.sweeper",
			"layer", "adapter",
			"operation", "sweep_once",
			"outcome", "success",
			"sessions_expired", sessions,
			"tokens_deleted", tokens,
		)
	}
}
