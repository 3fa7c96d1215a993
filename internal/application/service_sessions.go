package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
)

func (s *Service) ListSessions(ctx context.Context, principalID uuid.UUID) ([]SessionItem, error) {
	sessions, err := s.sessions.ListByPrincipal(ctx, principalID, 100, 0)
	if err != nil {
		return nil, err
	}
	result := make([]SessionItem, 0, len(sessions))
	for _, it := range sessions {
		result = append(result, toSessionItem(it))
	}
	return result, nil
}

// LoginHistoryQuery narrows the attempt listing for audit review.
type LoginHistoryQuery struct {
	Page   int
	Limit  int
	Days   int
	Status string
}

func (s *Service) ListLoginHistory(ctx context.Context, principalID uuid.UUID, query LoginHistoryQuery) ([]LoginAttemptItem, error) {
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	var since *time.Time
	if query.Days > 0 {
		cutoff := s.nowFn().AddDate(0, 0, -query.Days)
		since = &cutoff
	}

	attempts, err := s.loginAttempts.ListByPrincipal(ctx, principalID, query.Limit, (query.Page-1)*query.Limit, since, query.Status)
	if err != nil {
		return nil, err
	}
	result := make([]LoginAttemptItem, 0, len(attempts))
	for _, it := range attempts {
		result = append(result, LoginAttemptItem{
			AttemptAt:     it.AttemptAt,
			IPAddress:     it.IPAddress,
			Status:        it.Status,
			FailureReason: it.FailureReason,
			DeviceName:    it.DeviceName,
			DeviceOS:      it.DeviceOS,
		})
	}
	return result, nil
}

// RevokeSession ends one session by id, the per-device "sign out that
// browser" path. The caller must own the session; a foreign session id is
// indistinguishable from a missing one.
func (s *Service) RevokeSession(ctx context.Context, principalID, sessionID uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.PrincipalID != principalID {
		return domain.ErrNotFound
	}
	now := s.nowFn()
	if session.Active {
		if err := s.sessions.Deactivate(ctx, session.SessionID, domain.SessionEndLogout, now); err != nil {
			return err
		}
	}
	return s.tokens.RevokeByID(ctx, session.RefreshTokenID, now)
}

// SecurityOverview summarizes a principal's live credential surface and
// recent alert activity for the account-security screen.
func (s *Service) SecurityOverview(ctx context.Context, principalID uuid.UUID) (SecurityOverviewItem, error) {
	now := s.nowFn()

	activeSessions, err := s.sessions.CountActiveByPrincipal(ctx, principalID)
	if err != nil {
		return SecurityOverviewItem{}, err
	}
	usableTokens, err := s.tokens.CountUsableByPrincipal(ctx, principalID, now)
	if err != nil {
		return SecurityOverviewItem{}, err
	}

	recent, err := s.alerts.ListByPrincipalSince(ctx, principalID, now.Add(-30*24*time.Hour))
	if err != nil {
		return SecurityOverviewItem{}, err
	}
	overview := SecurityOverviewItem{
		ActiveSessions: activeSessions,
		UsableTokens:   usableTokens,
	}
	var maxOpen domain.Severity
	for _, alert := range recent {
		if alert.Resolved {
			continue
		}
		overview.OpenAlerts++
		if alert.Severity > maxOpen {
			maxOpen = alert.Severity
		}
	}
	if maxOpen > 0 {
		overview.MaxOpenSeverity = maxOpen.String()
	}
	return overview, nil
}

// DeactivateAccount disables the principal and tears down every live
// credential. Deactivation is reversible only by an operator; the row is
// never deleted because sessions and alerts reference it for audit.
func (s *Service) DeactivateAccount(ctx context.Context, principalID uuid.UUID) error {
	principal, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return err
	}
	now := s.nowFn()
	if err := s.principals.Deactivate(ctx, principalID, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.DeactivateAllByPrincipal(ctx, principalID, domain.SessionEndLogout, now); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllByPrincipal(ctx, principalID, now); err != nil {
		return err
	}
	return s.lockouts.Clear(ctx, lockoutKey(principal.Username))
}

// SweepSessions deactivates active sessions past expiry. Safe to run
// concurrently with live traffic: the underlying update is conditional on
// current state.
func (s *Service) SweepSessions(ctx context.Context) (int64, error) {
	return s.sessions.SweepExpired(ctx, s.nowFn())
}

// SweepRefreshTokens deletes refresh-token rows past expiry plus the grace
// retention kept for audit. Revocation is separate: revoked-but-unexpired
// rows are untouched.
func (s *Service) SweepRefreshTokens(ctx context.Context) (int64, error) {
	return s.tokens.SweepExpired(ctx, s.nowFn(), s.cfg.TokenSweepGrace)
}
