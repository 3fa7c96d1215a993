package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
)

// PrincipalRepository defines persistence operations for identities.
// Principals referenced by live sessions or alerts are deactivated, never
// deleted.
type PrincipalRepository interface {
	Create(ctx context.Context, p domain.Principal) (domain.Principal, error)
	GetByUsername(ctx context.Context, username string) (domain.Principal, error)
	GetByID(ctx context.Context, principalID uuid.UUID) (domain.Principal, error)
	// SetLock persists the lockout window and failed-attempt counter on the
	// principal row, the source of truth for IsLocked.
	SetLock(ctx context.Context, principalID uuid.UUID, lockUntil *time.Time, failedAttempts int, updatedAt time.Time) error
	Deactivate(ctx context.Context, principalID uuid.UUID, deactivatedAt time.Time) error
}

// RefreshTokenCreateParams carries the issue-time inputs; only the hash of
// the opaque token is ever handed to the repository.
type RefreshTokenCreateParams struct {
	PrincipalID uuid.UUID
	TokenHash   string
	DeviceName  string
	IPAddress   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// RefreshTokenRepository is the durable bookkeeping layer for refresh tokens.
// Rotation and reuse detection hinge on RevokeByHash being a conditional
// single-row update: revoking an already-revoked row affects zero rows, which
// the service treats as replay evidence.
type RefreshTokenRepository interface {
	Create(ctx context.Context, params RefreshTokenCreateParams) (domain.RefreshToken, error)
	GetByHash(ctx context.Context, tokenHash string) (domain.RefreshToken, error)
	// RevokeByHash marks the row revoked iff it is not already revoked and
	// records the successor token. Returns the number of rows transitioned.
	RevokeByHash(ctx context.Context, tokenHash string, revokedAt time.Time, replacedBy *uuid.UUID) (int64, error)
	RevokeByID(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error
	RevokeAllByPrincipal(ctx context.Context, principalID uuid.UUID, revokedAt time.Time) error
	CountUsableByPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int64, error)
	// SweepExpired physically deletes rows past expiry plus the grace
	// retention window kept for audit.
	SweepExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

// SessionCreateParams captures metadata required to create a session record.
// Device and network fields are stored for auditability and incident
// attribution.
type SessionCreateParams struct {
	PrincipalID    uuid.UUID
	SessionToken   string
	RefreshTokenID uuid.UUID
	DeviceName     string
	DeviceOS       string
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
	LastAccessedAt time.Time
}

// SessionRepository manages persistent session lifecycle. CreateWithCeiling
// owns the ceiling-check-then-evict-then-create sequence so it can run as one
// transaction; a plain count followed by an insert would let two concurrent
// logins both slip under the ceiling.
type SessionRepository interface {
	// CreateWithCeiling atomically evicts least-recently-accessed active
	// sessions down to ceiling-1 and inserts the new session. It returns the
	// created session and the sessions it evicted.
	CreateWithCeiling(ctx context.Context, params SessionCreateParams, ceiling int, now time.Time) (domain.Session, []domain.Session, error)
	GetByToken(ctx context.Context, sessionToken string) (domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit, offset int) ([]domain.Session, error)
	CountActiveByPrincipal(ctx context.Context, principalID uuid.UUID) (int64, error)
	// Touch updates last_accessed on active rows only; touching an inactive
	// session affects zero rows and is reported as such, not as an error.
	Touch(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) (int64, error)
	Deactivate(ctx context.Context, sessionID uuid.UUID, reason string, endedAt time.Time) error
	// RelinkRefreshToken points sessions at the successor token after a
	// rotation so per-device logout keeps revoking the live token.
	RelinkRefreshToken(ctx context.Context, oldTokenID, newTokenID uuid.UUID) error
	DeactivateAllByPrincipal(ctx context.Context, principalID uuid.UUID, reason string, endedAt time.Time) error
	// SweepExpired deactivates active rows past expiry with reason EXPIRED.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginAttemptRepository stores login outcomes used by lockout and audit.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error)
}

// AlertCreateParams carries raise-time inputs for a new OPEN alert.
type AlertCreateParams struct {
	PrincipalID *uuid.UUID
	Type        string
	Severity    domain.Severity
	TriggerData string
	CreatedAt   time.Time
}

// AlertPattern is one row of the recurring-alert query: alert counts per type
// for a principal inside a trailing window. It feeds human review only.
type AlertPattern struct {
	Type        string
	Count       int64
	MaxSeverity domain.Severity
	LastRaised  time.Time
}

// AlertRepository drives the alert lifecycle. Escalate and the two notify
// claims are conditional updates keyed on current state so that concurrent
// escalations or notification retries cannot double-apply.
type AlertRepository interface {
	Create(ctx context.Context, params AlertCreateParams) (domain.Alert, error)
	GetByID(ctx context.Context, alertID uuid.UUID) (domain.Alert, error)
	// Escalate raises severity iff the alert is open and the new severity is
	// strictly greater than the stored one. Zero rows means the transition
	// was not legal at the time of the write.
	Escalate(ctx context.Context, alertID uuid.UUID, newSeverity domain.Severity, reason string) (int64, error)
	// ClaimEmergencyNotify / ClaimProfessionalNotify atomically flip the
	// per-channel flag from false to true on an unresolved alert. A zero-row
	// result means the channel was already claimed or the alert is resolved.
	ClaimEmergencyNotify(ctx context.Context, alertID uuid.UUID) (int64, error)
	ClaimProfessionalNotify(ctx context.Context, alertID uuid.UUID) (int64, error)
	// ReleaseNotifyClaim undoes a claim whose dispatch failed so a later
	// retry can claim it again.
	ReleaseNotifyClaim(ctx context.Context, alertID uuid.UUID, channel string) error
	Resolve(ctx context.Context, alertID uuid.UUID, resolvedBy, notes string, resolvedAt time.Time) (int64, error)
	Assign(ctx context.Context, alertID uuid.UUID, assignedTo string) (int64, error)
	ListByPrincipalSince(ctx context.Context, principalID uuid.UUID, since time.Time) ([]domain.Alert, error)
	PatternsByPrincipal(ctx context.Context, principalID uuid.UUID, since time.Time) ([]AlertPattern, error)
	// ArchiveResolvedBefore marks resolved alerts past the retention window
	// as archived. Archived alerts are retained, never hard-deleted.
	ArchiveResolvedBefore(ctx context.Context, cutoff time.Time, archivedAt time.Time) (int64, error)
}
