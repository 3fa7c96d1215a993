package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"gorm.io/gorm"
)

type principalRepository struct {
	db *gorm.DB
}

func (r *principalRepository) Create(ctx context.Context, p domain.Principal) (domain.Principal, error) {
	rec := principalModel{
		Username:     strings.ToLower(p.Username),
		Email:        strings.ToLower(p.Email),
		PasswordHash: p.PasswordHash,
		Roles:        joinRoles(p.Roles),
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Principal{}, domain.ErrConflict
		}
		return domain.Principal{}, err
	}
	return toDomainPrincipal(rec), nil
}

func (r *principalRepository) GetByUsername(ctx context.Context, username string) (domain.Principal, error) {
	var rec principalModel
	if err := r.db.WithContext(ctx).Where("username = ?", strings.ToLower(username)).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Principal{}, domain.ErrNotFound
		}
		return domain.Principal{}, err
	}
	return toDomainPrincipal(rec), nil
}

func (r *principalRepository) GetByID(ctx context.Context, principalID uuid.UUID) (domain.Principal, error) {
	var rec principalModel
	if err := r.db.WithContext(ctx).Where("principal_id = ?", principalID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Principal{}, domain.ErrNotFound
		}
		return domain.Principal{}, err
	}
	return toDomainPrincipal(rec), nil
}

func (r *principalRepository) SetLock(ctx context.Context, principalID uuid.UUID, lockUntil *time.Time, failedAttempts int, updatedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&principalModel{}).
		Where("principal_id = ?", principalID).
		Updates(map[string]any{
			"lock_until":      lockUntil,
			"failed_attempts": failedAttempts,
			"updated_at":      updatedAt,
		}).Error
}

func (r *principalRepository) Deactivate(ctx context.Context, principalID uuid.UUID, deactivatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&principalModel{}).
		Where("principal_id = ?", principalID).
		Where("is_active = true").
		Updates(map[string]any{
			"is_active":      false,
			"deactivated_at": deactivatedAt,
			"updated_at":     deactivatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&principalModel{}).Where("principal_id = ?", principalID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}
