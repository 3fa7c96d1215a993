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

type refreshTokenRepository struct {
	db *gorm.DB
}

func (r *refreshTokenRepository) Create(ctx context.Context, params ports.RefreshTokenCreateParams) (domain.RefreshToken, error) {
	rec := refreshTokenModel{
		PrincipalID: params.PrincipalID,
		TokenHash:   params.TokenHash,
		DeviceName:  params.DeviceName,
		IPAddress:   nullableString(params.IPAddress),
		IssuedAt:    params.IssuedAt,
		ExpiresAt:   params.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RefreshToken{}, domain.ErrConflict
		}
		return domain.RefreshToken{}, err
	}
	return toDomainRefreshToken(rec), nil
}

func (r *refreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (domain.RefreshToken, error) {
	var rec refreshTokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RefreshToken{}, domain.ErrNotFound
		}
		return domain.RefreshToken{}, err
	}
	return toDomainRefreshToken(rec), nil
}

// RevokeByHash is the rotation point: revocation is write-once, so the WHERE
// clause on revoked_at IS NULL makes concurrent rotations race for a single
// winner. The loser observes zero rows.
func (r *refreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string, revokedAt time.Time, replacedBy *uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ?", tokenHash).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"revoked_at":     revokedAt,
			"replaced_by_id": replacedBy,
		})
	return res.RowsAffected, res.Error
}

func (r *refreshTokenRepository) RevokeByID(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_id = ?", tokenID).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt).Error
}

func (r *refreshTokenRepository) RevokeAllByPrincipal(ctx context.Context, principalID uuid.UUID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("principal_id = ?", principalID).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt).Error
}

func (r *refreshTokenRepository) CountUsableByPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("principal_id = ?", principalID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		Count(&count).Error
	return count, err
}

// SweepExpired physically deletes rows past expiry plus the grace retention.
// Revoked-but-unexpired rows are kept: revocation is audit state, not
// garbage.
func (r *refreshTokenRepository) SweepExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now.Add(-grace)).
		Delete(&refreshTokenModel{})
	return res.RowsAffected, res.Error
}
