package domain

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the canonical identity aggregate of the support core.
// It keeps only auth-relevant state; profile and clinical records live in
// other services and reference principals by ID.
type Principal struct {
	PrincipalID    uuid.UUID
	Username       string
	Email          string
	PasswordHash   string
	Roles          []string
	FailedAttempts int
	LockUntil      *time.Time
	IsActive       bool
	DeactivatedAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLocked reports whether the account is inside an active lockout window.
func (p Principal) IsLocked(now time.Time) bool {
	return p.LockUntil != nil && p.LockUntil.After(now)
}

// LoginAttempt records authentication outcomes for audit and lockout review.
// Explicit rows keep risk-signal generation deterministic.
type LoginAttempt struct {
	ID            int64
	PrincipalID   *uuid.UUID
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
	DeviceName    string
	DeviceOS      string
	UserAgent     string
}
