package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
)

// Raise creates an OPEN alert from a risk signal. CRITICAL severity and
// CRISIS-typed alerts fan out to the notification channels synchronously;
// crisis response never waits on a batch job. Notification failures on this
// path are logged, not returned: the alert exists either way and Notify can
// be retried.
func (s *Service) Raise(ctx context.Context, req RaiseAlertRequest) (AlertItem, error) {
	alertType := strings.ToUpper(strings.TrimSpace(req.Type))
	if !domain.ValidAlertType(alertType) {
		return AlertItem{}, fmt.Errorf("%w: unknown alert type %q", domain.ErrInvalidInput, req.Type)
	}
	severity, ok := domain.ParseSeverity(strings.ToUpper(strings.TrimSpace(req.Severity)))
	if !ok {
		return AlertItem{}, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, req.Severity)
	}

	alert, err := s.alerts.Create(ctx, ports.AlertCreateParams{
		PrincipalID: req.PrincipalID,
		Type:        alertType,
		Severity:    severity,
		TriggerData: req.TriggerData,
		CreatedAt:   s.nowFn(),
	})
	if err != nil {
		return AlertItem{}, err
	}

	s.logger().InfoContext(ctx, "alert raised",
		"operation", "raise_alert",
		"outcome", "success",
		"alert_id", alert.AlertID,
		"alert_type", alert.Type,
		"severity", alert.Severity.String(),
	)

	if alert.RequiresImmediateNotify() {
		if err := s.Notify(ctx, alert.AlertID); err != nil {
			s.logger().WarnContext(ctx, "immediate notification failed; retry via notify",
				"operation", "raise_alert",
				"outcome", "partial",
				"alert_id", alert.AlertID,
				"error", err,
			)
		}
		alert, err = s.alerts.GetByID(ctx, alert.AlertID)
		if err != nil {
			return AlertItem{}, err
		}
	}
	return toAlertItem(alert), nil
}

// Escalate moves an open alert to a strictly higher severity. The write is a
// conditional update keyed on current state, so concurrent escalations
// cannot double-apply and a stale caller gets ErrInvalidTransition.
func (s *Service) Escalate(ctx context.Context, alertID uuid.UUID, req EscalateAlertRequest) (AlertItem, error) {
	severity, ok := domain.ParseSeverity(strings.ToUpper(strings.TrimSpace(req.Severity)))
	if !ok {
		return AlertItem{}, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, req.Severity)
	}

	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return AlertItem{}, err
	}
	if !alert.CanEscalateTo(severity) {
		return AlertItem{}, escalationError(alert, severity)
	}

	rows, err := s.alerts.Escalate(ctx, alertID, severity, req.Reason)
	if err != nil {
		return AlertItem{}, err
	}
	if rows == 0 {
		// Lost the race: re-read to report the transition that actually won.
		current, getErr := s.alerts.GetByID(ctx, alertID)
		if getErr != nil {
			return AlertItem{}, getErr
		}
		return AlertItem{}, escalationError(current, severity)
	}

	s.logger().InfoContext(ctx, "alert escalated",
		"operation", "escalate_alert",
		"outcome", "success",
		"alert_id", alertID,
		"severity", severity.String(),
		"reason", req.Reason,
	)

	if severity == domain.SeverityCritical {
		if err := s.Notify(ctx, alertID); err != nil {
			s.logger().WarnContext(ctx, "post-escalation notification failed",
				"operation", "escalate_alert",
				"outcome", "partial",
				"alert_id", alertID,
				"error", err,
			)
		}
	}

	updated, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return AlertItem{}, err
	}
	return toAlertItem(updated), nil
}

// Notify dispatches the alert to its channels with at-most-once semantics per
// channel. Each channel flag is claimed with a conditional update before the
// dispatch; a failed dispatch releases the claim so the caller can retry with
// backoff. Calling Notify on an already-notified alert is a no-op.
func (s *Service) Notify(ctx context.Context, alertID uuid.UUID) error {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.Resolved {
		return fmt.Errorf("%w: alert is resolved", domain.ErrInvalidTransition)
	}

	payload := notifyPayload(alert)

	if alert.RequiresImmediateNotify() {
		if err := s.dispatchChannel(ctx, alert.AlertID, ports.ChannelEmergency, payload, s.alerts.ClaimEmergencyNotify); err != nil {
			return err
		}
	}
	return s.dispatchChannel(ctx, alert.AlertID, ports.ChannelProfessional, payload, s.alerts.ClaimProfessionalNotify)
}

func (s *Service) dispatchChannel(
	ctx context.Context,
	alertID uuid.UUID,
	channel string,
	payload []byte,
	claim func(context.Context, uuid.UUID) (int64, error),
) error {
	claimed, err := claim(ctx, alertID)
	if err != nil {
		return err
	}
	if claimed == 0 {
		return nil
	}
	if err := s.notifier.Notify(ctx, channel, alertID, payload); err != nil {
		if releaseErr := s.alerts.ReleaseNotifyClaim(ctx, alertID, channel); releaseErr != nil {
			s.logger().ErrorContext(ctx, "notify claim release failed",
				"operation", "dispatch_channel",
				"outcome", "failure",
				"alert_id", alertID,
				"channel", channel,
				"error", releaseErr,
			)
		}
		return fmt.Errorf("notify %s channel: %w", channel, err)
	}
	s.logger().InfoContext(ctx, "alert notification dispatched",
		"operation", "dispatch_channel",
		"outcome", "success",
		"alert_id", alertID,
		"channel", channel,
	)
	return nil
}

// Resolve closes the alert. Resolution is terminal: no escalation or
// notification is permitted afterward.
func (s *Service) Resolve(ctx context.Context, alertID uuid.UUID, req ResolveAlertRequest) (AlertItem, error) {
	if strings.TrimSpace(req.ResolvedBy) == "" {
		return AlertItem{}, fmt.Errorf("%w: resolved_by is required", domain.ErrInvalidInput)
	}
	rows, err := s.alerts.Resolve(ctx, alertID, req.ResolvedBy, req.Notes, s.nowFn())
	if err != nil {
		return AlertItem{}, err
	}
	if rows == 0 {
		if _, getErr := s.alerts.GetByID(ctx, alertID); getErr != nil {
			return AlertItem{}, getErr
		}
		return AlertItem{}, fmt.Errorf("%w: alert is already resolved", domain.ErrInvalidTransition)
	}
	updated, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return AlertItem{}, err
	}
	return toAlertItem(updated), nil
}

func (s *Service) Assign(ctx context.Context, alertID uuid.UUID, req AssignAlertRequest) (AlertItem, error) {
	if strings.TrimSpace(req.AssignedTo) == "" {
		return AlertItem{}, fmt.Errorf("%w: assigned_to is required", domain.ErrInvalidInput)
	}
	rows, err := s.alerts.Assign(ctx, alertID, strings.TrimSpace(req.AssignedTo))
	if err != nil {
		return AlertItem{}, err
	}
	if rows == 0 {
		if _, getErr := s.alerts.GetByID(ctx, alertID); getErr != nil {
			return AlertItem{}, getErr
		}
		return AlertItem{}, fmt.Errorf("%w: alert is already resolved", domain.ErrInvalidTransition)
	}
	updated, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return AlertItem{}, err
	}
	return toAlertItem(updated), nil
}

// DetectPatterns surfaces recurring alerts for one principal inside a
// trailing window. Read-only: it feeds human review, never automated
// escalation, to avoid the system escalating on its own output.
func (s *Service) DetectPatterns(ctx context.Context, principalID uuid.UUID, window time.Duration) ([]PatternItem, error) {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	patterns, err := s.alerts.PatternsByPrincipal(ctx, principalID, s.nowFn().Add(-window))
	if err != nil {
		return nil, err
	}
	result := make([]PatternItem, 0, len(patterns))
	for _, p := range patterns {
		result = append(result, PatternItem{
			Type:        p.Type,
			Count:       p.Count,
			MaxSeverity: p.MaxSeverity.String(),
			LastRaised:  p.LastRaised,
		})
	}
	return result, nil
}

func (s *Service) GetAlert(ctx context.Context, alertID uuid.UUID) (AlertItem, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return AlertItem{}, err
	}
	return toAlertItem(alert), nil
}

// ArchiveAlerts marks resolved alerts past the retention window as archived.
// Alerts are retained for audit, never hard-deleted.
func (s *Service) ArchiveAlerts(ctx context.Context) (int64, error) {
	now := s.nowFn()
	return s.alerts.ArchiveResolvedBefore(ctx, now.Add(-s.cfg.AlertRetention), now)
}

func escalationError(alert domain.Alert, requested domain.Severity) error {
	if alert.Resolved {
		return fmt.Errorf("%w: alert is resolved", domain.ErrInvalidTransition)
	}
	return fmt.Errorf("%w: severity %s does not exceed current %s",
		domain.ErrInvalidTransition, requested.String(), alert.Severity.String())
}

func notifyPayload(alert domain.Alert) []byte {
	payload, err := json.Marshal(map[string]any{
		"alert_id":     alert.AlertID,
		"principal_id": alert.PrincipalID,
		"type":         alert.Type,
		"severity":     alert.Severity.String(),
		"created_at":   alert.CreatedAt,
	})
	if err != nil {
		return []byte("{}")
	}
	return payload
}
