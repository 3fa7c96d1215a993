package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"gorm.io/gorm"
)

type loginAttemptRepository struct {
	db *gorm.DB
}

func (r *loginAttemptRepository) Insert(ctx context.Context, attempt domain.LoginAttempt) error {
	rec := loginAttemptModel{
		PrincipalID:   attempt.PrincipalID,
		AttemptAt:     attempt.AttemptAt,
		IPAddress:     nullableString(attempt.IPAddress),
		Status:        attempt.Status,
		FailureReason: attempt.FailureReason,
		DeviceName:    attempt.DeviceName,
		DeviceOS:      attempt.DeviceOS,
		UserAgent:     attempt.UserAgent,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *loginAttemptRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	query := r.db.WithContext(ctx).
		Model(&loginAttemptModel{}).
		Where("principal_id = ?", principalID).
		Order("attempt_at DESC").
		Limit(limit).
		Offset(offset)
	if since != nil {
		query = query.Where("attempt_at >= ?", *since)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []loginAttemptModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.LoginAttempt, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainLoginAttempt(item))
	}
	return result, nil
}
