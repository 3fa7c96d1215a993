package postgres

import (
	"strings"

	"github.com/mindhaven/support-core/internal/domain"
)

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Roles persist as a comma-joined list. The set is small and read-only per
// request, so a join table buys nothing here.
func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toDomainPrincipal(m principalModel) domain.Principal {
	return domain.Principal{
		PrincipalID:    m.PrincipalID,
		Username:       m.Username,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		Roles:          splitRoles(m.Roles),
		FailedAttempts: m.FailedAttempts,
		LockUntil:      m.LockUntil,
		IsActive:       m.IsActive,
		DeactivatedAt:  m.DeactivatedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toDomainRefreshToken(m refreshTokenModel) domain.RefreshToken {
	return domain.RefreshToken{
		TokenID:      m.TokenID,
		PrincipalID:  m.PrincipalID,
		TokenHash:    m.TokenHash,
		DeviceName:   m.DeviceName,
		IPAddress:    derefString(m.IPAddress),
		IssuedAt:     m.IssuedAt,
		ExpiresAt:    m.ExpiresAt,
		RevokedAt:    m.RevokedAt,
		ReplacedByID: m.ReplacedByID,
	}
}

func toDomainSession(m sessionModel) domain.Session {
	return domain.Session{
		SessionID:      m.SessionID,
		PrincipalID:    m.PrincipalID,
		SessionToken:   m.SessionToken,
		RefreshTokenID: m.RefreshTokenID,
		DeviceName:     m.DeviceName,
		DeviceOS:       m.DeviceOS,
		IPAddress:      derefString(m.IPAddress),
		UserAgent:      m.UserAgent,
		CreatedAt:      m.CreatedAt,
		LastAccessedAt: m.LastAccessedAt,
		ExpiresAt:      m.ExpiresAt,
		Active:         m.Active,
		EndReason:      m.EndReason,
		EndedAt:        m.EndedAt,
	}
}

func toDomainLoginAttempt(m loginAttemptModel) domain.LoginAttempt {
	return domain.LoginAttempt{
		ID:            m.ID,
		PrincipalID:   m.PrincipalID,
		AttemptAt:     m.AttemptAt,
		IPAddress:     derefString(m.IPAddress),
		Status:        m.Status,
		FailureReason: m.FailureReason,
		DeviceName:    m.DeviceName,
		DeviceOS:      m.DeviceOS,
		UserAgent:     m.UserAgent,
	}
}

func toDomainAlert(m alertModel) domain.Alert {
	return domain.Alert{
		AlertID:              m.AlertID,
		PrincipalID:          m.PrincipalID,
		Type:                 m.Type,
		Severity:             domain.Severity(m.Severity),
		TriggerData:          m.TriggerData,
		AssignedTo:           m.AssignedTo,
		Resolved:             m.Resolved,
		ResolvedBy:           m.ResolvedBy,
		ResolutionNotes:      m.ResolutionNotes,
		EmergencyNotified:    m.EmergencyNotified,
		ProfessionalNotified: m.ProfessionalNotified,
		CreatedAt:            m.CreatedAt,
		ResolvedAt:           m.ResolvedAt,
		ArchivedAt:           m.ArchivedAt,
	}
}
