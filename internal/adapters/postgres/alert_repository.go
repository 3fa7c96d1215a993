package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
	"gorm.io/gorm"
)

type alertRepository struct {
	db *gorm.DB
}

func (r *alertRepository) Create(ctx context.Context, params ports.AlertCreateParams) (domain.Alert, error) {
	rec := alertModel{
		PrincipalID: params.PrincipalID,
		Type:        params.Type,
		Severity:    int(params.Severity),
		TriggerData: params.TriggerData,
		CreatedAt:   params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Alert{}, err
	}
	return toDomainAlert(rec), nil
}

func (r *alertRepository) GetByID(ctx context.Context, alertID uuid.UUID) (domain.Alert, error) {
	var rec alertModel
	if err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Alert{}, domain.ErrNotFound
		}
		return domain.Alert{}, err
	}
	return toDomainAlert(rec), nil
}

// Escalate encodes the monotonicity invariant in the WHERE clause: only open
// alerts, only strictly increasing severity. Concurrent escalations to the
// same level race for one winner.
func (r *alertRepository) Escalate(ctx context.Context, alertID uuid.UUID, newSeverity domain.Severity, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("alert_id = ?", alertID).
		Where("resolved = false").
		Where("severity < ?", int(newSeverity)).
		Updates(map[string]any{
			"severity":          int(newSeverity),
			"escalation_reason": reason,
		})
	return res.RowsAffected, res.Error
}

func (r *alertRepository) ClaimEmergencyNotify(ctx context.Context, alertID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("alert_id = ?", alertID).
		Where("resolved = false").
		Where("emergency_notified = false").
		Update("emergency_notified", true)
	return res.RowsAffected, res.Error
}

func (r *alertRepository) ClaimProfessionalNotify(ctx context.Context, alertID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("alert_id = ?", alertID).
		Where("resolved = false").
		Where("professional_notified = false").
		Update("professional_notified", true)
	return res.RowsAffected, res.Error
}

func (r *alertRepository) ReleaseNotifyClaim(ctx context.Context, alertID uuid.UUID, channel string) error {
	column := "professional_notified"
	if channel == ports.ChannelEmergency {
		column = "emergency_notified"
	}
	return r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("alert_id = ?", alertID).
		Update(column, false).Error
}

func (r *alertRepository) Resolve(ctx context.Context, alertID uuid.UUID, resolvedBy, notes string, resolvedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("alert_id = ?", alertID).
		Where("resolved = false").
		Updates(map[string]any{
			"resolved":         true,
			"resolved_by":      resolvedBy,
			"resolution_notes": notes,
			"resolved_at":      resolvedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *alertRepository) Assign(ctx context.Context, alertID uuid.UUID, assignedTo string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("alert_id = ?", alertID).
		Where("resolved = false").
		Update("assigned_to", assignedTo)
	return res.RowsAffected, res.Error
}

func (r *alertRepository) ListByPrincipalSince(ctx context.Context, principalID uuid.UUID, since time.Time) ([]domain.Alert, error) {
	var rows []alertModel
	if err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Alert, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainAlert(item))
	}
	return result, nil
}

func (r *alertRepository) PatternsByPrincipal(ctx context.Context, principalID uuid.UUID, since time.Time) ([]ports.AlertPattern, error) {
	var rows []struct {
		AlertType   string
		Count       int64
		MaxSeverity int
		LastRaised  time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Select("alert_type, COUNT(*) AS count, MAX(severity) AS max_severity, MAX(created_at) AS last_raised").
		Where("principal_id = ?", principalID).
		Where("created_at >= ?", since).
		Group("alert_type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]ports.AlertPattern, 0, len(rows))
	for _, row := range rows {
		result = append(result, ports.AlertPattern{
			Type:        row.AlertType,
			Count:       row.Count,
			MaxSeverity: domain.Severity(row.MaxSeverity),
			LastRaised:  row.LastRaised,
		})
	}
	return result, nil
}

func (r *alertRepository) ArchiveResolvedBefore(ctx context.Context, cutoff time.Time, archivedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("resolved = true").
		Where("archived_at IS NULL").
		Where("resolved_at < ?", cutoff).
		Update("archived_at", archivedAt)
	return res.RowsAffected, res.Error
}
