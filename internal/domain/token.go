package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the store-backed long-lived credential. Only the SHA-256
// hash of the opaque token string is persisted; the raw value is returned to
// the caller exactly once at issue/rotate time.
type RefreshToken struct {
	TokenID     uuid.UUID
	PrincipalID uuid.UUID
	TokenHash   string
	DeviceName  string
	IPAddress   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	// ReplacedByID links a rotated token to its successor for audit trails.
	ReplacedByID *uuid.UUID
}

// IsRevoked reports write-once revocation state.
func (t RefreshToken) IsRevoked() bool { return t.RevokedAt != nil }

// Usable is the single validity predicate: unrevoked and unexpired.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
