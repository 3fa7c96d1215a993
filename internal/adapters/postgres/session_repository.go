package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db *gorm.DB
}

// CreateWithCeiling runs the ceiling-check-then-evict-then-create sequence in
// one transaction, linearized per principal. Eviction picks the
// least-recently-accessed active sessions and deactivates them; creation is
// never rejected.
func (r *sessionRepository) CreateWithCeiling(ctx context.Context, params ports.SessionCreateParams, ceiling int, now time.Time) (domain.Session, []domain.Session, error) {
	if ceiling <= 0 {
		ceiling = 1
	}

	var created sessionModel
	var evicted []sessionModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row locks on the existing active set are not enough at READ
		// COMMITTED: a concurrent login's fresh INSERT is a phantom the
		// re-evaluated read never sees, and both transactions would skip
		// eviction. The transaction-scoped advisory lock serializes the whole
		// check-evict-insert sequence per principal.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", params.PrincipalID.String()).Error; err != nil {
			return err
		}

		var active []sessionModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("principal_id = ?", params.PrincipalID).
			Where("active = true").
			Order("last_accessed_at ASC").
			Find(&active).Error; err != nil {
			return err
		}

		if overflow := len(active) - (ceiling - 1); overflow > 0 {
			for _, victim := range active[:overflow] {
				res := tx.Model(&sessionModel{}).
					Where("session_id = ?", victim.SessionID).
					Where("active = true").
					Updates(map[string]any{
						"active":     false,
						"end_reason": domain.SessionEndEvicted,
						"ended_at":   now,
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected > 0 {
					victim.Active = false
					victim.EndReason = domain.SessionEndEvicted
					endedAt := now
					victim.EndedAt = &endedAt
					evicted = append(evicted, victim)
				}
			}
		}

		created = sessionModel{
			PrincipalID:    params.PrincipalID,
			SessionToken:   params.SessionToken,
			RefreshTokenID: params.RefreshTokenID,
			DeviceName:     params.DeviceName,
			DeviceOS:       params.DeviceOS,
			IPAddress:      nullableString(params.IPAddress),
			UserAgent:      params.UserAgent,
			CreatedAt:      params.LastAccessedAt,
			LastAccessedAt: params.LastAccessedAt,
			ExpiresAt:      params.ExpiresAt,
			Active:         true,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return domain.Session{}, nil, err
	}

	out := make([]domain.Session, 0, len(evicted))
	for _, item := range evicted {
		out = append(out, toDomainSession(item))
	}
	return toDomainSession(created), out, nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, sessionToken string) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("session_token = ?", sessionToken).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	var rows []sessionModel
	query := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Session, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainSession(item))
	}
	return result, nil
}

func (r *sessionRepository) CountActiveByPrincipal(ctx context.Context, principalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("principal_id = ?", principalID).
		Where("active = true").
		Count(&count).Error
	return count, err
}

// Touch only lands on active rows. A touch racing an eviction simply affects
// zero rows; the caller re-authenticates on its next request.
func (r *sessionRepository) Touch(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", sessionID).
		Where("active = true").
		Update("last_accessed_at", touchedAt)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) Deactivate(ctx context.Context, sessionID uuid.UUID, reason string, endedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", sessionID).
		Where("active = true").
		Updates(map[string]any{
			"active":     false,
			"end_reason": reason,
			"ended_at":   endedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&sessionModel{}).Where("session_id = ?", sessionID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *sessionRepository) DeactivateAllByPrincipal(ctx context.Context, principalID uuid.UUID, reason string, endedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("principal_id = ?", principalID).
		Where("active = true").
		Updates(map[string]any{
			"active":     false,
			"end_reason": reason,
			"ended_at":   endedAt,
		}).Error
}

func (r *sessionRepository) RelinkRefreshToken(ctx context.Context, oldTokenID, newTokenID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("refresh_token_id = ?", oldTokenID).
		Where("active = true").
		Update("refresh_token_id", newTokenID).Error
}

func (r *sessionRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("active = true").
		Where("expires_at < ?", now).
		Updates(map[string]any{
			"active":     false,
			"end_reason": domain.SessionEndExpired,
			"ended_at":   now,
		})
	return res.RowsAffected, res.Error
}
