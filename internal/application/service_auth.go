package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
)

func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return RegisterResponse{}, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	roles := normalizeRoles(req.Roles)
	if len(roles) == 0 {
		roles = append(roles, s.cfg.DefaultRoles...)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	created, err := s.principals.Create(ctx, domain.Principal{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        roles,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}
	return RegisterResponse{PrincipalID: created.PrincipalID}, nil
}

// Login authenticates with username/password and, on success, issues the
// access/refresh pair and a device session. Lockout state is checked first
// and never leaks: a locked account fails with the same error as a wrong
// password, even when the password is correct.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenPairResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		return TokenPairResponse{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	principal, err := s.principals.GetByUsername(ctx, username)
	if err != nil {
		s.recordFailure(ctx, nil, req, "PRINCIPAL_NOT_FOUND")
		return TokenPairResponse{}, domain.ErrInvalidCredentials
	}
	if !principal.IsActive {
		s.recordFailure(ctx, &principal.PrincipalID, req, "PRINCIPAL_DEACTIVATED")
		return TokenPairResponse{}, domain.ErrInvalidCredentials
	}
	if principal.IsLocked(now) {
		s.recordFailure(ctx, &principal.PrincipalID, req, "ACCOUNT_LOCKED")
		return TokenPairResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(principal.PasswordHash, req.Password); err != nil {
		s.recordFailure(ctx, &principal.PrincipalID, req, "INVALID_PASSWORD")
		state, _ := s.lockouts.RecordFailure(ctx, lockoutKey(username), now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if state.LockedUntil != nil {
			// Persist the window on the principal row, the source of truth
			// for IsLocked, and raise the security alert for human review.
			_ = s.principals.SetLock(ctx, principal.PrincipalID, state.LockedUntil, state.FailedCount, now)
			s.raiseFailedLoginAlert(ctx, principal.PrincipalID, state.FailedCount, req.IPAddress)
		}
		return TokenPairResponse{}, domain.ErrInvalidCredentials
	}

	_ = s.lockouts.Clear(ctx, lockoutKey(username))
	if principal.FailedAttempts > 0 || principal.LockUntil != nil {
		_ = s.principals.SetLock(ctx, principal.PrincipalID, nil, 0, now)
	}

	pair, err := s.issueTokenPair(ctx, principal, req, now)
	if err != nil {
		return TokenPairResponse{}, err
	}

	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		PrincipalID: &principal.PrincipalID,
		AttemptAt:   now,
		IPAddress:   req.IPAddress,
		Status:      "SUCCESS",
		DeviceName:  req.DeviceName,
		DeviceOS:    req.DeviceOS,
		UserAgent:   req.UserAgent,
	})
	return pair, nil
}

// Refresh rotates the presented refresh token: the old token is atomically
// revoked and a successor is issued for the same principal. Presenting an
// already-spent token is proof of compromise and triggers full revocation.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (TokenPairResponse, error) {
	raw := strings.TrimSpace(rawRefreshToken)
	if raw == "" {
		return TokenPairResponse{}, domain.ErrInvalidToken
	}

	now := s.nowFn()
	tokenHash := hashToken(raw)
	token, err := s.tokens.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPairResponse{}, domain.ErrInvalidToken
		}
		return TokenPairResponse{}, err
	}
	if token.IsRevoked() {
		return TokenPairResponse{}, s.handleTokenReuse(ctx, token, now)
	}
	if !now.Before(token.ExpiresAt) {
		return TokenPairResponse{}, domain.ErrTokenExpired
	}

	principal, err := s.principals.GetByID(ctx, token.PrincipalID)
	if err != nil {
		// Only a genuinely missing principal invalidates the token; an
		// infrastructure failure must surface as one, not as a 401.
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPairResponse{}, domain.ErrInvalidToken
		}
		return TokenPairResponse{}, err
	}
	if !principal.IsActive {
		return TokenPairResponse{}, domain.ErrInvalidToken
	}

	// Conditional revoke is the rotation point. Zero rows means another
	// rotation spent the token between our read and this write, which is the
	// same replay evidence as presenting a revoked token.
	newTokenID := uuid.New()
	rotated, err := s.tokens.RevokeByHash(ctx, tokenHash, now, &newTokenID)
	if err != nil {
		return TokenPairResponse{}, err
	}
	if rotated == 0 {
		return TokenPairResponse{}, s.handleTokenReuse(ctx, token, now)
	}

	newRaw := randomHex(32)
	successor, err := s.tokens.Create(ctx, ports.RefreshTokenCreateParams{
		PrincipalID: principal.PrincipalID,
		TokenHash:   hashToken(newRaw),
		DeviceName:  token.DeviceName,
		IPAddress:   token.IPAddress,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
	})
	if err != nil {
		return TokenPairResponse{}, err
	}
	_ = s.sessions.RelinkRefreshToken(ctx, token.TokenID, successor.TokenID)

	accessToken, expiresAt, err := s.signAccessToken(principal, now)
	if err != nil {
		return TokenPairResponse{}, err
	}
	return TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: newRaw,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout deactivates the session and revokes its refresh token. Unknown or
// already-ended sessions are a no-op so retried logouts stay safe.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return fmt.Errorf("%w: session token is required", domain.ErrInvalidInput)
	}
	session, err := s.sessions.GetByToken(ctx, hashToken(sessionToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	now := s.nowFn()
	if session.Active {
		if err := s.sessions.Deactivate(ctx, session.SessionID, domain.SessionEndLogout, now); err != nil {
			return err
		}
	}
	return s.tokens.RevokeByID(ctx, session.RefreshTokenID, now)
}

// LogoutAll is the "sign out everywhere" path, also used by the reuse
// detection and operator-forced revocation flows.
func (s *Service) LogoutAll(ctx context.Context, principalID uuid.UUID) error {
	now := s.nowFn()
	if err := s.sessions.DeactivateAllByPrincipal(ctx, principalID, domain.SessionEndLogout, now); err != nil {
		return err
	}
	return s.tokens.RevokeAllByPrincipal(ctx, principalID, now)
}

// Authenticate validates a bearer access token statelessly and, when the
// request carries a session token, records the access on that session. A
// touch on an evicted or expired session is a no-op; the access token stays
// valid until natural expiry.
func (s *Service) Authenticate(ctx context.Context, rawAccessToken, sessionToken string) (ports.AccessClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(rawAccessToken, s.nowFn())
	if err != nil {
		return ports.AccessClaims{}, err
	}
	if sessionToken = strings.TrimSpace(sessionToken); sessionToken != "" {
		session, getErr := s.sessions.GetByToken(ctx, hashToken(sessionToken))
		if getErr == nil && session.PrincipalID == claims.PrincipalID {
			_, _ = s.sessions.Touch(ctx, session.SessionID, s.nowFn())
		}
	}
	return claims, nil
}

func (s *Service) handleTokenReuse(ctx context.Context, token domain.RefreshToken, now time.Time) error {
	_ = s.tokens.RevokeAllByPrincipal(ctx, token.PrincipalID, now)
	_ = s.sessions.DeactivateAllByPrincipal(ctx, token.PrincipalID, domain.SessionEndLogout, now)

	trigger, _ := json.Marshal(map[string]any{
		"token_id":   token.TokenID,
		"device":     token.DeviceName,
		"ip_address": token.IPAddress,
		"revoked_at": token.RevokedAt,
	})
	_, raiseErr := s.Raise(ctx, RaiseAlertRequest{
		PrincipalID: &token.PrincipalID,
		Type:        domain.AlertTypeTokenReuse,
		Severity:    domain.SeverityCritical.String(),
		TriggerData: string(trigger),
	})
	if raiseErr != nil {
		s.logger().ErrorContext(ctx, "token reuse alert failed",
			"operation", "handle_token_reuse",
			"outcome", "failure",
			"principal_id", token.PrincipalID,
			"error", raiseErr,
		)
	}
	return domain.ErrTokenReused
}

func (s *Service) issueTokenPair(ctx context.Context, principal domain.Principal, req LoginRequest, now time.Time) (TokenPairResponse, error) {
	rawRefresh := randomHex(32)
	refresh, err := s.tokens.Create(ctx, ports.RefreshTokenCreateParams{
		PrincipalID: principal.PrincipalID,
		TokenHash:   hashToken(rawRefresh),
		DeviceName:  req.DeviceName,
		IPAddress:   req.IPAddress,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
	})
	if err != nil {
		return TokenPairResponse{}, fmt.Errorf("issue refresh token: %w", err)
	}

	rawSession := randomHex(32)
	_, evicted, err := s.sessions.CreateWithCeiling(ctx, ports.SessionCreateParams{
		PrincipalID:    principal.PrincipalID,
		SessionToken:   hashToken(rawSession),
		RefreshTokenID: refresh.TokenID,
		DeviceName:     req.DeviceName,
		DeviceOS:       req.DeviceOS,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
		LastAccessedAt: now,
	}, s.cfg.SessionCeiling, now)
	if err != nil {
		return TokenPairResponse{}, fmt.Errorf("create session: %w", err)
	}
	// Eviction also retires the evicted device's refresh token; the ceiling
	// bounds live credentials, not just session rows.
	for _, ev := range evicted {
		_ = s.tokens.RevokeByID(ctx, ev.RefreshTokenID, now)
	}

	accessToken, expiresAt, err := s.signAccessToken(principal, now)
	if err != nil {
		return TokenPairResponse{}, err
	}
	return TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		SessionToken: rawSession,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) signAccessToken(principal domain.Principal, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.cfg.AccessTokenTTL)
	token, err := s.tokenSigner.Sign(ports.AccessClaims{
		PrincipalID: principal.PrincipalID,
		Username:    principal.Username,
		Roles:       principal.Roles,
		Issuer:      s.cfg.Issuer,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) raiseFailedLoginAlert(ctx context.Context, principalID uuid.UUID, failedCount int, ip string) {
	trigger, _ := json.Marshal(map[string]any{
		"failed_count": failedCount,
		"ip_address":   ip,
	})
	if _, err := s.Raise(ctx, RaiseAlertRequest{
		PrincipalID: &principalID,
		Type:        domain.AlertTypeRepeatedFailedLogin,
		Severity:    domain.SeverityMedium.String(),
		TriggerData: string(trigger),
	}); err != nil {
		s.logger().ErrorContext(ctx, "failed login alert not raised",
			"operation", "raise_failed_login_alert",
			"outcome", "failure",
			"principal_id", principalID,
			"error", err,
		)
	}
}

func (s *Service) recordFailure(ctx context.Context, principalID *uuid.UUID, req LoginRequest, reason string) {
	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		PrincipalID:   principalID,
		AttemptAt:     s.nowFn(),
		IPAddress:     req.IPAddress,
		Status:        "FAILED",
		FailureReason: reason,
		DeviceName:    req.DeviceName,
		DeviceOS:      req.DeviceOS,
		UserAgent:     req.UserAgent,
	})
}

func lockoutKey(username string) string { return "login:" + username }

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role != "" {
			out = append(out, role)
		}
	}
	return out
}
