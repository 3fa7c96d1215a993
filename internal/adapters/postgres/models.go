package postgres

import (
	"time"

	"github.com/google/uuid"
)

type principalModel struct {
	PrincipalID    uuid.UUID  `gorm:"column:principal_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username       string     `gorm:"column:username"`
	Email          string     `gorm:"column:email"`
	PasswordHash   string     `gorm:"column:password_hash"`
	Roles          string     `gorm:"column:roles"`
	FailedAttempts int        `gorm:"column:failed_attempts"`
	LockUntil      *time.Time `gorm:"column:lock_until"`
	IsActive       bool       `gorm:"column:is_active"`
	DeactivatedAt  *time.Time `gorm:"column:deactivated_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (principalModel) TableName() string { return "principals" }

type refreshTokenModel struct {
	TokenID      uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrincipalID  uuid.UUID  `gorm:"column:principal_id"`
	TokenHash    string     `gorm:"column:token_hash"`
	DeviceName   string     `gorm:"column:device_name"`
	IPAddress    *string    `gorm:"column:ip_address"`
	IssuedAt     time.Time  `gorm:"column:issued_at"`
	ExpiresAt    time.Time  `gorm:"column:expires_at"`
	RevokedAt    *time.Time `gorm:"column:revoked_at"`
	ReplacedByID *uuid.UUID `gorm:"column:replaced_by_id"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type sessionModel struct {
	SessionID      uuid.UUID  `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrincipalID    uuid.UUID  `gorm:"column:principal_id"`
	SessionToken   string     `gorm:"column:session_token"`
	RefreshTokenID uuid.UUID  `gorm:"column:refresh_token_id"`
	DeviceName     string     `gorm:"column:device_name"`
	DeviceOS       string     `gorm:"column:device_os"`
	IPAddress      *string    `gorm:"column:ip_address"`
	UserAgent      string     `gorm:"column:user_agent"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	LastAccessedAt time.Time  `gorm:"column:last_accessed_at"`
	ExpiresAt      time.Time  `gorm:"column:expires_at"`
	Active         bool       `gorm:"column:active"`
	EndReason      string     `gorm:"column:end_reason"`
	EndedAt        *time.Time `gorm:"column:ended_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	PrincipalID   *uuid.UUID `gorm:"column:principal_id"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	Status        string     `gorm:"column:status"`
	FailureReason string     `gorm:"column:failure_reason"`
	DeviceName    string     `gorm:"column:device_name"`
	DeviceOS      string     `gorm:"column:device_os"`
	UserAgent     string     `gorm:"column:user_agent"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type alertModel struct {
	AlertID              uuid.UUID  `gorm:"column:alert_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrincipalID          *uuid.UUID `gorm:"column:principal_id"`
	Type                 string     `gorm:"column:alert_type"`
	Severity             int        `gorm:"column:severity"`
	TriggerData          string     `gorm:"column:trigger_data"`
	EscalationReason     string     `gorm:"column:escalation_reason"`
	AssignedTo           string     `gorm:"column:assigned_to"`
	Resolved             bool       `gorm:"column:resolved"`
	ResolvedBy           string     `gorm:"column:resolved_by"`
	ResolutionNotes      string     `gorm:"column:resolution_notes"`
	EmergencyNotified    bool       `gorm:"column:emergency_notified"`
	ProfessionalNotified bool       `gorm:"column:professional_notified"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	ResolvedAt           *time.Time `gorm:"column:resolved_at"`
	ArchivedAt           *time.Time `gorm:"column:archived_at"`
}

func (alertModel) TableName() string { return "alerts" }
