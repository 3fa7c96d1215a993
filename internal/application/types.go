package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
)

type Config struct {
	Issuer               string
	DefaultRoles         []string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	SessionTTL           time.Duration
	SessionCeiling       int
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	AlertRetention       time.Duration
	TokenSweepGrace      time.Duration

	// Signal thresholds for the black-box classifier/predictor outputs.
	ChatCrisisScore    float64
	ChatCriticalScore  float64
	PredictionHighRisk float64
	PredictionCritical float64
}

type RegisterRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type RegisterResponse struct {
	PrincipalID uuid.UUID `json:"principal_id"`
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
	DeviceOS   string `json:"device_os"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
}

type TokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SessionToken string    `json:"session_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type LogoutRequest struct {
	SessionToken string `json:"session_token"`
}

type SessionItem struct {
	SessionID      uuid.UUID  `json:"session_id"`
	DeviceName     string     `json:"device_name"`
	DeviceOS       string     `json:"device_os"`
	IPAddress      string     `json:"ip_address"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Active         bool       `json:"active"`
	EndReason      string     `json:"end_reason,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

type LoginAttemptItem struct {
	AttemptAt     time.Time `json:"attempt_at"`
	IPAddress     string    `json:"ip_address,omitempty"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	DeviceName    string    `json:"device_name,omitempty"`
	DeviceOS      string    `json:"device_os,omitempty"`
}

type SecurityOverviewItem struct {
	ActiveSessions  int64  `json:"active_sessions"`
	UsableTokens    int64  `json:"usable_tokens"`
	OpenAlerts      int64  `json:"open_alerts"`
	MaxOpenSeverity string `json:"max_open_severity,omitempty"`
}

type RaiseAlertRequest struct {
	PrincipalID *uuid.UUID `json:"principal_id,omitempty"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	TriggerData string     `json:"trigger_data,omitempty"`
}

type EscalateAlertRequest struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

type ResolveAlertRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes,omitempty"`
}

type AssignAlertRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type AlertItem struct {
	AlertID              uuid.UUID  `json:"alert_id"`
	PrincipalID          *uuid.UUID `json:"principal_id,omitempty"`
	Type                 string     `json:"type"`
	Severity             string     `json:"severity"`
	TriggerData          string     `json:"trigger_data,omitempty"`
	AssignedTo           string     `json:"assigned_to,omitempty"`
	Resolved             bool       `json:"resolved"`
	EmergencyNotified    bool       `json:"emergency_notified"`
	ProfessionalNotified bool       `json:"professional_notified"`
	CreatedAt            time.Time  `json:"created_at"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty"`
}

type PatternItem struct {
	Type        string    `json:"type"`
	Count       int64     `json:"count"`
	MaxSeverity string    `json:"max_severity"`
	LastRaised  time.Time `json:"last_raised"`
}

type ChatSignalRequest struct {
	PrincipalID *uuid.UUID `json:"principal_id,omitempty"`
	Text        string     `json:"text"`
}

type ChatSignalResponse struct {
	Score      float64    `json:"score"`
	Indicators []string   `json:"indicators,omitempty"`
	AlertID    *uuid.UUID `json:"alert_id,omitempty"`
}

type PredictionSignalRequest struct {
	PrincipalID uuid.UUID          `json:"principal_id"`
	Features    map[string]float64 `json:"features"`
}

type PredictionSignalResponse struct {
	Stress     float64    `json:"stress"`
	Depression float64    `json:"depression"`
	Anxiety    float64    `json:"anxiety"`
	AlertID    *uuid.UUID `json:"alert_id,omitempty"`
}

func toSessionItem(s domain.Session) SessionItem {
	return SessionItem{
		SessionID:      s.SessionID,
		DeviceName:     s.DeviceName,
		DeviceOS:       s.DeviceOS,
		IPAddress:      s.IPAddress,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.LastAccessedAt,
		ExpiresAt:      s.ExpiresAt,
		Active:         s.Active,
		EndReason:      s.EndReason,
		EndedAt:        s.EndedAt,
	}
}

func toAlertItem(a domain.Alert) AlertItem {
	return AlertItem{
		AlertID:              a.AlertID,
		PrincipalID:          a.PrincipalID,
		Type:                 a.Type,
		Severity:             a.Severity.String(),
		TriggerData:          a.TriggerData,
		AssignedTo:           a.AssignedTo,
		Resolved:             a.Resolved,
		EmergencyNotified:    a.EmergencyNotified,
		ProfessionalNotified: a.ProfessionalNotified,
		CreatedAt:            a.CreatedAt,
		ResolvedAt:           a.ResolvedAt,
	}
}
