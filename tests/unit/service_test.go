package unit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/application"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
)

func TestRegisterLoginRefreshLogout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	registerRes, err := f.service.Register(ctx, application.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if registerRes.PrincipalID == uuid.Nil {
		t.Fatalf("register returned empty principal id")
	}

	loginRes, err := f.service.Login(ctx, application.LoginRequest{
		Username:   "alice",
		Password:   "SecurePass123!",
		IPAddress:  "127.0.0.1",
		UserAgent:  "unit-test",
		DeviceName: "test",
		DeviceOS:   "linux",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loginRes.AccessToken == "" || loginRes.RefreshToken == "" || loginRes.SessionToken == "" {
		t.Fatalf("expected full token set from login")
	}

	refreshRes, err := f.service.Refresh(ctx, loginRes.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshRes.AccessToken == "" || refreshRes.RefreshToken == "" {
		t.Fatalf("expected rotated token pair from refresh")
	}
	if refreshRes.RefreshToken == loginRes.RefreshToken {
		t.Fatalf("refresh must rotate the refresh token")
	}

	if err := f.service.Logout(ctx, loginRes.SessionToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := f.service.Logout(ctx, loginRes.SessionToken); err != nil {
		t.Fatalf("repeated logout must be a no-op, got %v", err)
	}

	sessions, err := f.service.ListSessions(ctx, registerRes.PrincipalID)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	for _, s := range sessions {
		if s.Active {
			t.Fatalf("expected no active session after logout")
		}
		if s.EndReason != domain.SessionEndLogout {
			t.Fatalf("expected LOGGED_OUT end reason, got %s", s.EndReason)
		}
	}
}

func TestRefreshReuseForcesLogoutEverywhere(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	principalID := f.register(t, "bob", "bob@example.com")

	first := f.login(t, "bob")
	second := f.login(t, "bob")

	rotated, err := f.service.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	// Presenting the spent token is replay evidence.
	if _, err := f.service.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused on replay, got %v", err)
	}

	usable, err := f.tokens.CountUsableByPrincipal(ctx, principalID, time.Now().UTC())
	if err != nil {
		t.Fatalf("count usable failed: %v", err)
	}
	if usable != 0 {
		t.Fatalf("expected zero usable refresh tokens after reuse, got %d", usable)
	}

	active, err := f.sessions.CountActiveByPrincipal(ctx, principalID)
	if err != nil {
		t.Fatalf("count active failed: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected all sessions deactivated after reuse, got %d active", active)
	}

	// Successor and the untouched second device token are dead too.
	if _, err := f.service.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Fatalf("expected successor token dead after reuse, got %v", err)
	}
	if _, err := f.service.Refresh(ctx, second.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Fatalf("expected second device token dead after reuse, got %v", err)
	}

	alert := f.alerts.lastOfType(domain.AlertTypeTokenReuse)
	if alert == nil {
		t.Fatalf("expected TOKEN_REUSE alert")
	}
	if alert.Severity != domain.SeverityCritical {
		t.Fatalf("expected CRITICAL token reuse alert, got %s", alert.Severity.String())
	}
	if !alert.EmergencyNotified || !alert.ProfessionalNotified {
		t.Fatalf("expected immediate fan-out on critical alert")
	}
}

func TestExpiredRefreshTokenRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.register(t, "carol", "carol@example.com")
	login := f.login(t, "carol")

	f.tokens.expireAll()

	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshSurfacesPrincipalLookupFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.register(t, "gina", "gina@example.com")
	login := f.login(t, "gina")

	// A database outage during the principal lookup is not an invalid
	// token; it must come back unwrapped so the boundary maps it to 500.
	outage := errors.New("connection refused")
	f.principals.failGetByID(outage)

	_, err := f.service.Refresh(ctx, login.RefreshToken)
	if !errors.Is(err, outage) {
		t.Fatalf("expected lookup failure to propagate, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("lookup failure must not surface as an invalid token")
	}

	// The token was not spent by the failed attempt.
	f.principals.failGetByID(nil)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("refresh after recovery failed: %v", err)
	}
}

func TestSessionCeilingEvictsOldestNeverRejects(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.SessionCeiling = 3
	f := newFixtureWithConfig(cfg)
	ctx := context.Background()
	principalID := f.register(t, "dave", "dave@example.com")

	var logins []application.TokenPairResponse
	for i := 0; i < 4; i++ {
		logins = append(logins, f.login(t, "dave"))
	}

	active, err := f.sessions.CountActiveByPrincipal(ctx, principalID)
	if err != nil {
		t.Fatalf("count active failed: %v", err)
	}
	if active != 3 {
		t.Fatalf("expected ceiling to hold 3 active sessions, got %d", active)
	}

	// The first login is the least recently accessed and must be the one
	// evicted; its refresh token is retired with it.
	evicted := f.sessions.byRawToken(logins[0].SessionToken)
	if evicted == nil {
		t.Fatalf("first session missing")
	}
	if evicted.Active || evicted.EndReason != domain.SessionEndEvicted {
		t.Fatalf("expected first session evicted, active=%v reason=%s", evicted.Active, evicted.EndReason)
	}
	if _, err := f.service.Refresh(ctx, logins[0].RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Fatalf("expected evicted device refresh token revoked, got %v", err)
	}

	for _, res := range logins[1:] {
		s := f.sessions.byRawToken(res.SessionToken)
		if s == nil || !s.Active {
			t.Fatalf("expected newer sessions to stay active")
		}
	}
}

func TestConcurrentLoginsNeverExceedCeiling(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.SessionCeiling = 3
	f := newFixtureWithConfig(cfg)
	ctx := context.Background()
	principalID := f.register(t, "erin", "erin@example.com")

	// Racing logins must interleave through the atomic
	// check-evict-create sequence; no schedule may overshoot the ceiling.
	const attempts = 12
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Login(ctx, application.LoginRequest{
				Username:  "erin",
				Password:  "SecurePass123!",
				IPAddress: "127.0.0.1",
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent login failed: %v", err)
		}
	}

	active, err := f.sessions.CountActiveByPrincipal(ctx, principalID)
	if err != nil {
		t.Fatalf("count active failed: %v", err)
	}
	if active != 3 {
		t.Fatalf("expected exactly 3 active sessions after %d concurrent logins, got %d", attempts, active)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	principalID := f.register(t, "eve", "eve@example.com")

	for i := 0; i < 5; i++ {
		if _, err := f.service.Login(ctx, application.LoginRequest{
			Username: "eve",
			Password: "WrongPass123!",
		}); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials on attempt %d, got %v", i+1, err)
		}
	}

	// Locked account fails identically even with the correct password.
	if _, err := f.service.Login(ctx, application.LoginRequest{
		Username: "eve",
		Password: "SecurePass123!",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected locked account to fail with invalid credentials, got %v", err)
	}

	alert := f.alerts.lastOfType(domain.AlertTypeRepeatedFailedLogin)
	if alert == nil {
		t.Fatalf("expected REPEATED_FAILED_LOGIN alert after lockout")
	}
	if alert.Severity != domain.SeverityMedium {
		t.Fatalf("expected MEDIUM severity, got %s", alert.Severity.String())
	}
	if alert.PrincipalID == nil || *alert.PrincipalID != principalID {
		t.Fatalf("expected alert attributed to the locked principal")
	}
}

func TestAuthenticateTouchesOnlyActiveSessions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.register(t, "frank", "frank@example.com")
	login := f.login(t, "frank")

	before := f.sessions.byRawToken(login.SessionToken).LastAccessedAt
	time.Sleep(2 * time.Millisecond)

	claims, err := f.service.Authenticate(ctx, login.AccessToken, login.SessionToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if claims.Username != "frank" {
		t.Fatalf("unexpected claims username %q", claims.Username)
	}
	after := f.sessions.byRawToken(login.SessionToken).LastAccessedAt
	if !after.After(before) {
		t.Fatalf("expected session touch to advance last accessed time")
	}

	if err := f.service.Logout(ctx, login.SessionToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	ended := f.sessions.byRawToken(login.SessionToken).LastAccessedAt

	// Access token stays valid; the touch on the ended session is a no-op.
	if _, err := f.service.Authenticate(ctx, login.AccessToken, login.SessionToken); err != nil {
		t.Fatalf("authenticate after logout failed: %v", err)
	}
	if got := f.sessions.byRawToken(login.SessionToken).LastAccessedAt; !got.Equal(ended) {
		t.Fatalf("touch on inactive session must not change last accessed time")
	}
}

func TestRevokeSessionRequiresOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	ownerID := f.register(t, "ivan", "ivan@example.com")
	otherID := f.register(t, "judy", "judy@example.com")

	login := f.login(t, "ivan")
	session := f.sessions.byRawToken(login.SessionToken)
	if session == nil {
		t.Fatalf("session missing")
	}

	if err := f.service.RevokeSession(ctx, otherID, session.SessionID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected foreign session to look missing, got %v", err)
	}

	if err := f.service.RevokeSession(ctx, ownerID, session.SessionID); err != nil {
		t.Fatalf("revoke session failed: %v", err)
	}
	revoked := f.sessions.byRawToken(login.SessionToken)
	if revoked.Active || revoked.EndReason != domain.SessionEndLogout {
		t.Fatalf("expected session ended, active=%v reason=%s", revoked.Active, revoked.EndReason)
	}
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, domain.ErrTokenReused) {
		t.Fatalf("expected revoked device token to be unusable, got %v", err)
	}
}

func TestDeactivateAccountTearsDownCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	principalID := f.register(t, "karl", "karl@example.com")
	f.login(t, "karl")
	f.login(t, "karl")

	if err := f.service.DeactivateAccount(ctx, principalID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	active, err := f.sessions.CountActiveByPrincipal(ctx, principalID)
	if err != nil {
		t.Fatalf("count active failed: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected all sessions ended, got %d active", active)
	}
	usable, err := f.tokens.CountUsableByPrincipal(ctx, principalID, time.Now().UTC())
	if err != nil {
		t.Fatalf("count usable failed: %v", err)
	}
	if usable != 0 {
		t.Fatalf("expected all refresh tokens revoked, got %d usable", usable)
	}

	if _, err := f.service.Login(ctx, application.LoginRequest{
		Username: "karl",
		Password: "SecurePass123!",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected deactivated account login to fail, got %v", err)
	}
}

func TestSecurityOverviewCountsLiveCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	principalID := f.register(t, "lena", "lena@example.com")
	f.login(t, "lena")
	f.login(t, "lena")

	if _, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		PrincipalID: &principalID,
		Type:        domain.AlertTypeChatCrisis,
		Severity:    "HIGH",
	}); err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	resolved, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		PrincipalID: &principalID,
		Type:        domain.AlertTypeSystem,
		Severity:    "LOW",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if _, err := f.service.Resolve(ctx, resolved.AlertID, application.ResolveAlertRequest{ResolvedBy: "ops"}); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	overview, err := f.service.SecurityOverview(ctx, principalID)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.ActiveSessions != 2 || overview.UsableTokens != 2 {
		t.Fatalf("unexpected credential counts: %+v", overview)
	}
	if overview.OpenAlerts != 1 || overview.MaxOpenSeverity != "HIGH" {
		t.Fatalf("unexpected alert summary: %+v", overview)
	}
}

func TestEscalationIsMonotonic(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	raised, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		Type:     domain.AlertTypeSystem,
		Severity: "LOW",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}

	escalated, err := f.service.Escalate(ctx, raised.AlertID, application.EscalateAlertRequest{
		Severity: "HIGH",
		Reason:   "signal repeated",
	})
	if err != nil {
		t.Fatalf("escalate to HIGH failed: %v", err)
	}
	if escalated.Severity != "HIGH" {
		t.Fatalf("expected HIGH severity, got %s", escalated.Severity)
	}

	if _, err := f.service.Escalate(ctx, raised.AlertID, application.EscalateAlertRequest{
		Severity: "MEDIUM",
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on downgrade, got %v", err)
	}
	if _, err := f.service.Escalate(ctx, raised.AlertID, application.EscalateAlertRequest{
		Severity: "HIGH",
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on same severity, got %v", err)
	}

	if _, err := f.service.Resolve(ctx, raised.AlertID, application.ResolveAlertRequest{
		ResolvedBy: "clinician-1",
	}); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// Resolved is absorbing.
	if _, err := f.service.Escalate(ctx, raised.AlertID, application.EscalateAlertRequest{
		Severity: "CRITICAL",
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after resolution, got %v", err)
	}
	if _, err := f.service.Resolve(ctx, raised.AlertID, application.ResolveAlertRequest{
		ResolvedBy: "clinician-2",
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double resolve, got %v", err)
	}
	if err := f.service.Notify(ctx, raised.AlertID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition notifying resolved alert, got %v", err)
	}
}

func TestNotifyDispatchesAtMostOncePerChannel(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	raised, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		Type:     domain.AlertTypeChatCrisis,
		Severity: "HIGH",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if f.notifier.count(ports.ChannelEmergency)+f.notifier.count(ports.ChannelProfessional) != 0 {
		t.Fatalf("HIGH alert must not notify on raise")
	}

	if err := f.service.Notify(ctx, raised.AlertID); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := f.service.Notify(ctx, raised.AlertID); err != nil {
		t.Fatalf("repeated notify failed: %v", err)
	}

	if got := f.notifier.count(ports.ChannelProfessional); got != 1 {
		t.Fatalf("expected exactly one professional dispatch, got %d", got)
	}
	if got := f.notifier.count(ports.ChannelEmergency); got != 0 {
		t.Fatalf("HIGH alert must not reach the emergency channel, got %d", got)
	}
}

func TestCriticalRaiseNotifiesBothChannelsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	raised, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		Type:     domain.AlertTypeCrisis,
		Severity: "CRITICAL",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if !raised.EmergencyNotified || !raised.ProfessionalNotified {
		t.Fatalf("expected synchronous fan-out on critical raise")
	}

	if err := f.service.Notify(ctx, raised.AlertID); err != nil {
		t.Fatalf("repeated notify failed: %v", err)
	}

	if got := f.notifier.count(ports.ChannelEmergency); got != 1 {
		t.Fatalf("expected one emergency dispatch, got %d", got)
	}
	if got := f.notifier.count(ports.ChannelProfessional); got != 1 {
		t.Fatalf("expected one professional dispatch, got %d", got)
	}
}

func TestNotifyFailureReleasesClaimForRetry(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	raised, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		Type:     domain.AlertTypeChatCrisis,
		Severity: "HIGH",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}

	f.notifier.fail(true)
	if err := f.service.Notify(ctx, raised.AlertID); err == nil {
		t.Fatalf("expected notify to surface dispatch failure")
	}

	f.notifier.fail(false)
	if err := f.service.Notify(ctx, raised.AlertID); err != nil {
		t.Fatalf("retry after release failed: %v", err)
	}
	if got := f.notifier.count(ports.ChannelProfessional); got != 1 {
		t.Fatalf("expected exactly one successful professional dispatch, got %d", got)
	}
}

func TestChatSignalSeverityThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		score      float64
		indicators []string
		wantType   string
		wantSev    string
		wantAlert  bool
	}{
		{name: "critical-score", score: 0.9, wantType: domain.AlertTypeCrisis, wantSev: "CRITICAL", wantAlert: true},
		{name: "crisis-score", score: 0.5, wantType: domain.AlertTypeChatCrisis, wantSev: "HIGH", wantAlert: true},
		{name: "indicators-only", score: 0.1, indicators: []string{"self harm"}, wantType: domain.AlertTypeChatCrisis, wantSev: "MEDIUM", wantAlert: true},
		{name: "benign", score: 0.1, wantAlert: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture()
			ctx := context.Background()
			principalID := f.register(t, "chat-"+tc.name, "chat-"+tc.name+"@example.com")

			f.classifier.result = ports.RiskClassification{Score: tc.score, Indicators: tc.indicators}

			res, err := f.service.IngestChatMessage(ctx, application.ChatSignalRequest{
				PrincipalID: &principalID,
				Text:        "message under review",
			})
			if err != nil {
				t.Fatalf("ingest chat failed: %v", err)
			}

			if !tc.wantAlert {
				if res.AlertID != nil {
					t.Fatalf("expected no alert for benign message")
				}
				return
			}
			if res.AlertID == nil {
				t.Fatalf("expected alert")
			}
			item, err := f.service.GetAlert(ctx, *res.AlertID)
			if err != nil {
				t.Fatalf("get alert failed: %v", err)
			}
			if item.Type != tc.wantType || item.Severity != tc.wantSev {
				t.Fatalf("expected %s/%s, got %s/%s", tc.wantType, tc.wantSev, item.Type, item.Severity)
			}
		})
	}
}

func TestPredictionSignalUsesPeakDimension(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	principalID := f.register(t, "grace", "grace@example.com")

	f.predictor.result = ports.RiskPrediction{Stress: 0.2, Depression: 0.9, Anxiety: 0.3}
	res, err := f.service.IngestPrediction(ctx, application.PredictionSignalRequest{
		PrincipalID: principalID,
		Features:    map[string]float64{"sleep": 0.1},
	})
	if err != nil {
		t.Fatalf("ingest prediction failed: %v", err)
	}
	if res.AlertID == nil {
		t.Fatalf("expected alert for high-risk prediction")
	}
	item, err := f.service.GetAlert(ctx, *res.AlertID)
	if err != nil {
		t.Fatalf("get alert failed: %v", err)
	}
	if item.Type != domain.AlertTypeHighRiskPrediction || item.Severity != "CRITICAL" {
		t.Fatalf("expected CRITICAL HIGH_RISK_PREDICTION, got %s/%s", item.Type, item.Severity)
	}

	f.predictor.result = ports.RiskPrediction{Stress: 0.65, Depression: 0.1, Anxiety: 0.1}
	res, err = f.service.IngestPrediction(ctx, application.PredictionSignalRequest{
		PrincipalID: principalID,
		Features:    map[string]float64{"sleep": 0.1},
	})
	if err != nil {
		t.Fatalf("ingest prediction failed: %v", err)
	}
	if res.AlertID == nil {
		t.Fatalf("expected HIGH alert")
	}
	item, _ = f.service.GetAlert(ctx, *res.AlertID)
	if item.Severity != "HIGH" {
		t.Fatalf("expected HIGH severity, got %s", item.Severity)
	}

	f.predictor.result = ports.RiskPrediction{Stress: 0.2, Depression: 0.2, Anxiety: 0.2}
	res, err = f.service.IngestPrediction(ctx, application.PredictionSignalRequest{
		PrincipalID: principalID,
		Features:    map[string]float64{"sleep": 0.1},
	})
	if err != nil {
		t.Fatalf("ingest prediction failed: %v", err)
	}
	if res.AlertID != nil {
		t.Fatalf("expected no alert below the high-risk threshold")
	}
}

func TestArchiveKeepsUnresolvedAlerts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	open, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		Type:     domain.AlertTypeSystem,
		Severity: "LOW",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	resolved, err := f.service.Raise(ctx, application.RaiseAlertRequest{
		Type:     domain.AlertTypeSystem,
		Severity: "LOW",
	})
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if _, err := f.service.Resolve(ctx, resolved.AlertID, application.ResolveAlertRequest{ResolvedBy: "ops"}); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	f.alerts.backdateResolution(resolved.AlertID, time.Now().UTC().Add(-60*24*time.Hour))

	archived, err := f.service.ArchiveAlerts(ctx)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived != 1 {
		t.Fatalf("expected one archived alert, got %d", archived)
	}
	if f.alerts.get(open.AlertID).ArchivedAt != nil {
		t.Fatalf("open alert must never be archived")
	}
	if f.alerts.get(resolved.AlertID).ArchivedAt == nil {
		t.Fatalf("expected resolved alert past retention to be archived")
	}
}

func TestDetectPatternsGroupsByType(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	principalID := f.register(t, "henry", "henry@example.com")

	for _, sev := range []string{"LOW", "MEDIUM", "HIGH"} {
		if _, err := f.service.Raise(ctx, application.RaiseAlertRequest{
			PrincipalID: &principalID,
			Type:        domain.AlertTypeChatCrisis,
			Severity:    sev,
		}); err != nil {
			t.Fatalf("raise failed: %v", err)
		}
	}

	patterns, err := f.service.DetectPatterns(ctx, principalID, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("detect patterns failed: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected one pattern row, got %d", len(patterns))
	}
	if patterns[0].Type != domain.AlertTypeChatCrisis || patterns[0].Count != 3 || patterns[0].MaxSeverity != "HIGH" {
		t.Fatalf("unexpected pattern row: %+v", patterns[0])
	}
}

func (f *fixture) register(t *testing.T, username, email string) uuid.UUID {
	t.Helper()
	res, err := f.service.Register(context.Background(), application.RegisterRequest{
		Username: username,
		Email:    email,
		Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("register %s failed: %v", username, err)
	}
	return res.PrincipalID
}

func (f *fixture) login(t *testing.T, username string) application.TokenPairResponse {
	t.Helper()
	res, err := f.service.Login(context.Background(), application.LoginRequest{
		Username:   username,
		Password:   "SecurePass123!",
		IPAddress:  "127.0.0.1",
		UserAgent:  "unit-test",
		DeviceName: "test",
		DeviceOS:   "linux",
	})
	if err != nil {
		t.Fatalf("login %s failed: %v", username, err)
	}
	// Force distinct last-accessed ordering for eviction assertions.
	time.Sleep(2 * time.Millisecond)
	return res
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func defaultTestConfig() application.Config {
	return application.Config{
		Issuer:               "support-core-test",
		DefaultRoles:         []string{"MEMBER"},
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		SessionTTL:           30 * 24 * time.Hour,
		SessionCeiling:       5,
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
		AlertRetention:       30 * 24 * time.Hour,
		TokenSweepGrace:      24 * time.Hour,
		ChatCrisisScore:      0.4,
		ChatCriticalScore:    0.8,
		PredictionHighRisk:   0.6,
		PredictionCritical:   0.85,
	}
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	principals := &fakePrincipals{
		byUsername: map[string]domain.Principal{},
		byID:       map[uuid.UUID]domain.Principal{},
	}
	tokens := &fakeTokens{byHash: map[string]domain.RefreshToken{}}
	sessions := &fakeSessions{byID: map[uuid.UUID]domain.Session{}}
	alerts := &fakeAlerts{byID: map[uuid.UUID]domain.Alert{}}
	lockouts := &fakeLockouts{state: map[string]ports.LockoutState{}}
	notifier := &countingNotifier{counts: map[string]int{}}
	classifier := &stubClassifier{}
	predictor := &stubPredictor{}

	svc := application.NewService(application.Dependencies{
		Config:        cfg,
		Principals:    principals,
		Tokens:        tokens,
		Sessions:      sessions,
		LoginAttempts: &fakeLoginAttempts{},
		Alerts:        alerts,
		Lockouts:      lockouts,
		Hasher:        &fakeHasher{},
		TokenSigner:   &fakeSigner{tokens: map[string]ports.AccessClaims{}},
		Notifier:      notifier,
		Classifier:    classifier,
		Predictor:     predictor,
	})

	return &fixture{
		service:    svc,
		principals: principals,
		tokens:     tokens,
		sessions:   sessions,
		alerts:     alerts,
		notifier:   notifier,
		classifier: classifier,
		predictor:  predictor,
	}
}

type fixture struct {
	service    *application.Service
	principals *fakePrincipals
	tokens     *fakeTokens
	sessions   *fakeSessions
	alerts     *fakeAlerts
	notifier   *countingNotifier
	classifier *stubClassifier
	predictor  *stubPredictor
}

type fakePrincipals struct {
	mu         sync.Mutex
	byUsername map[string]domain.Principal
	byID       map[uuid.UUID]domain.Principal
	getByIDErr error
}

// failGetByID makes every GetByID fail with err until cleared with nil,
// simulating an infrastructure outage on the lookup path.
func (f *fakePrincipals) failGetByID(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByIDErr = err
}

func (f *fakePrincipals) Create(_ context.Context, p domain.Principal) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUsername[p.Username]; ok {
		return domain.Principal{}, domain.ErrConflict
	}
	p.PrincipalID = uuid.New()
	f.byUsername[p.Username] = p
	f.byID[p.PrincipalID] = p
	return p, nil
}

func (f *fakePrincipals) GetByUsername(_ context.Context, username string) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byUsername[username]
	if !ok {
		return domain.Principal{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePrincipals) GetByID(_ context.Context, principalID uuid.UUID) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByIDErr != nil {
		return domain.Principal{}, f.getByIDErr
	}
	p, ok := f.byID[principalID]
	if !ok {
		return domain.Principal{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePrincipals) SetLock(_ context.Context, principalID uuid.UUID, lockUntil *time.Time, failedAttempts int, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[principalID]
	if !ok {
		return domain.ErrNotFound
	}
	p.LockUntil = lockUntil
	p.FailedAttempts = failedAttempts
	p.UpdatedAt = updatedAt
	f.byID[principalID] = p
	f.byUsername[p.Username] = p
	return nil
}

func (f *fakePrincipals) Deactivate(_ context.Context, principalID uuid.UUID, deactivatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[principalID]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsActive = false
	p.DeactivatedAt = &deactivatedAt
	f.byID[principalID] = p
	f.byUsername[p.Username] = p
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]domain.RefreshToken
}

func (f *fakeTokens) Create(_ context.Context, params ports.RefreshTokenCreateParams) (domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byHash[params.TokenHash]; ok {
		return domain.RefreshToken{}, domain.ErrConflict
	}
	token := domain.RefreshToken{
		TokenID:     uuid.New(),
		PrincipalID: params.PrincipalID,
		TokenHash:   params.TokenHash,
		DeviceName:  params.DeviceName,
		IPAddress:   params.IPAddress,
		IssuedAt:    params.IssuedAt,
		ExpiresAt:   params.ExpiresAt,
	}
	f.byHash[params.TokenHash] = token
	return token, nil
}

func (f *fakeTokens) GetByHash(_ context.Context, tokenHash string) (domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.byHash[tokenHash]
	if !ok {
		return domain.RefreshToken{}, domain.ErrNotFound
	}
	return token, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, tokenHash string, revokedAt time.Time, replacedBy *uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.byHash[tokenHash]
	if !ok || token.RevokedAt != nil {
		return 0, nil
	}
	token.RevokedAt = &revokedAt
	token.ReplacedByID = replacedBy
	f.byHash[tokenHash] = token
	return 1, nil
}

func (f *fakeTokens) RevokeByID(_ context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, token := range f.byHash {
		if token.TokenID == tokenID && token.RevokedAt == nil {
			token.RevokedAt = &revokedAt
			f.byHash[hash] = token
		}
	}
	return nil
}

func (f *fakeTokens) RevokeAllByPrincipal(_ context.Context, principalID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, token := range f.byHash {
		if token.PrincipalID == principalID && token.RevokedAt == nil {
			token.RevokedAt = &revokedAt
			f.byHash[hash] = token
		}
	}
	return nil
}

func (f *fakeTokens) CountUsableByPrincipal(_ context.Context, principalID uuid.UUID, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, token := range f.byHash {
		if token.PrincipalID == principalID && token.Usable(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTokens) SweepExpired(_ context.Context, now time.Time, grace time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for hash, token := range f.byHash {
		if token.ExpiresAt.Before(now.Add(-grace)) {
			delete(f.byHash, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeTokens) expireAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	past := time.Now().UTC().Add(-time.Hour)
	for hash, token := range f.byHash {
		token.ExpiresAt = past
		f.byHash[hash] = token
	}
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Session
}

func (f *fakeSessions) CreateWithCeiling(_ context.Context, params ports.SessionCreateParams, ceiling int, now time.Time) (domain.Session, []domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var active []domain.Session
	for _, s := range f.byID {
		if s.PrincipalID == params.PrincipalID && s.Active {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastAccessedAt.Before(active[j].LastAccessedAt)
	})

	var evicted []domain.Session
	if overflow := len(active) - (ceiling - 1); overflow > 0 {
		for _, victim := range active[:overflow] {
			victim.Active = false
			victim.EndReason = domain.SessionEndEvicted
			endedAt := now
			victim.EndedAt = &endedAt
			f.byID[victim.SessionID] = victim
			evicted = append(evicted, victim)
		}
	}

	created := domain.Session{
		SessionID:      uuid.New(),
		PrincipalID:    params.PrincipalID,
		SessionToken:   params.SessionToken,
		RefreshTokenID: params.RefreshTokenID,
		DeviceName:     params.DeviceName,
		DeviceOS:       params.DeviceOS,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		CreatedAt:      params.LastAccessedAt,
		LastAccessedAt: params.LastAccessedAt,
		ExpiresAt:      params.ExpiresAt,
		Active:         true,
	}
	f.byID[created.SessionID] = created
	return created, evicted, nil
}

func (f *fakeSessions) GetByToken(_ context.Context, sessionToken string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.SessionToken == sessionToken {
			return s, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (f *fakeSessions) GetByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) ListByPrincipal(_ context.Context, principalID uuid.UUID, _, _ int) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.byID {
		if s.PrincipalID == principalID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) CountActiveByPrincipal(_ context.Context, principalID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, s := range f.byID {
		if s.PrincipalID == principalID && s.Active {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessions) Touch(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok || !s.Active {
		return 0, nil
	}
	s.LastAccessedAt = touchedAt
	f.byID[sessionID] = s
	return 1, nil
}

func (f *fakeSessions) Deactivate(_ context.Context, sessionID uuid.UUID, reason string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Active {
		s.Active = false
		s.EndReason = reason
		s.EndedAt = &endedAt
		f.byID[sessionID] = s
	}
	return nil
}

func (f *fakeSessions) RelinkRefreshToken(_ context.Context, oldTokenID, newTokenID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.byID {
		if s.RefreshTokenID == oldTokenID && s.Active {
			s.RefreshTokenID = newTokenID
			f.byID[id] = s
		}
	}
	return nil
}

func (f *fakeSessions) DeactivateAllByPrincipal(_ context.Context, principalID uuid.UUID, reason string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.byID {
		if s.PrincipalID == principalID && s.Active {
			s.Active = false
			s.EndReason = reason
			s.EndedAt = &endedAt
			f.byID[id] = s
		}
	}
	return nil
}

func (f *fakeSessions) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	for id, s := range f.byID {
		if s.Active && s.ExpiresAt.Before(now) {
			s.Active = false
			s.EndReason = domain.SessionEndExpired
			endedAt := now
			s.EndedAt = &endedAt
			f.byID[id] = s
			swept++
		}
	}
	return swept, nil
}

// byRawToken resolves a session by its raw token the way callers present it.
func (f *fakeSessions) byRawToken(raw string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	hashed := hashForTest(raw)
	for _, s := range f.byID {
		if s.SessionToken == hashed {
			cp := s
			return &cp
		}
	}
	return nil
}

type fakeLoginAttempts struct{}

func (f *fakeLoginAttempts) Insert(context.Context, domain.LoginAttempt) error { return nil }

func (f *fakeLoginAttempts) ListByPrincipal(context.Context, uuid.UUID, int, int, *time.Time, string) ([]domain.LoginAttempt, error) {
	return nil, nil
}

type fakeAlerts struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Alert
}

func (f *fakeAlerts) Create(_ context.Context, params ports.AlertCreateParams) (domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert := domain.Alert{
		AlertID:     uuid.New(),
		PrincipalID: params.PrincipalID,
		Type:        params.Type,
		Severity:    params.Severity,
		TriggerData: params.TriggerData,
		CreatedAt:   params.CreatedAt,
	}
	f.byID[alert.AlertID] = alert
	return alert, nil
}

func (f *fakeAlerts) GetByID(_ context.Context, alertID uuid.UUID) (domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok {
		return domain.Alert{}, domain.ErrNotFound
	}
	return alert, nil
}

func (f *fakeAlerts) Escalate(_ context.Context, alertID uuid.UUID, newSeverity domain.Severity, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok || alert.Resolved || newSeverity <= alert.Severity {
		return 0, nil
	}
	alert.Severity = newSeverity
	f.byID[alertID] = alert
	return 1, nil
}

func (f *fakeAlerts) ClaimEmergencyNotify(_ context.Context, alertID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok || alert.Resolved || alert.EmergencyNotified {
		return 0, nil
	}
	alert.EmergencyNotified = true
	f.byID[alertID] = alert
	return 1, nil
}

func (f *fakeAlerts) ClaimProfessionalNotify(_ context.Context, alertID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok || alert.Resolved || alert.ProfessionalNotified {
		return 0, nil
	}
	alert.ProfessionalNotified = true
	f.byID[alertID] = alert
	return 1, nil
}

func (f *fakeAlerts) ReleaseNotifyClaim(_ context.Context, alertID uuid.UUID, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok {
		return domain.ErrNotFound
	}
	if channel == ports.ChannelEmergency {
		alert.EmergencyNotified = false
	} else {
		alert.ProfessionalNotified = false
	}
	f.byID[alertID] = alert
	return nil
}

func (f *fakeAlerts) Resolve(_ context.Context, alertID uuid.UUID, resolvedBy, notes string, resolvedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok || alert.Resolved {
		return 0, nil
	}
	alert.Resolved = true
	alert.ResolvedBy = resolvedBy
	alert.ResolutionNotes = notes
	alert.ResolvedAt = &resolvedAt
	f.byID[alertID] = alert
	return 1, nil
}

func (f *fakeAlerts) Assign(_ context.Context, alertID uuid.UUID, assignedTo string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.byID[alertID]
	if !ok || alert.Resolved {
		return 0, nil
	}
	alert.AssignedTo = assignedTo
	f.byID[alertID] = alert
	return 1, nil
}

func (f *fakeAlerts) ListByPrincipalSince(_ context.Context, principalID uuid.UUID, since time.Time) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Alert
	for _, alert := range f.byID {
		if alert.PrincipalID != nil && *alert.PrincipalID == principalID && !alert.CreatedAt.Before(since) {
			out = append(out, alert)
		}
	}
	return out, nil
}

func (f *fakeAlerts) PatternsByPrincipal(_ context.Context, principalID uuid.UUID, since time.Time) ([]ports.AlertPattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grouped := map[string]*ports.AlertPattern{}
	for _, alert := range f.byID {
		if alert.PrincipalID == nil || *alert.PrincipalID != principalID || alert.CreatedAt.Before(since) {
			continue
		}
		p, ok := grouped[alert.Type]
		if !ok {
			p = &ports.AlertPattern{Type: alert.Type}
			grouped[alert.Type] = p
		}
		p.Count++
		if alert.Severity > p.MaxSeverity {
			p.MaxSeverity = alert.Severity
		}
		if alert.CreatedAt.After(p.LastRaised) {
			p.LastRaised = alert.CreatedAt
		}
	}
	out := make([]ports.AlertPattern, 0, len(grouped))
	for _, p := range grouped {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeAlerts) ArchiveResolvedBefore(_ context.Context, cutoff time.Time, archivedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var archived int64
	for id, alert := range f.byID {
		if alert.Resolved && alert.ArchivedAt == nil && alert.ResolvedAt != nil && alert.ResolvedAt.Before(cutoff) {
			at := archivedAt
			alert.ArchivedAt = &at
			f.byID[id] = alert
			archived++
		}
	}
	return archived, nil
}

func (f *fakeAlerts) lastOfType(alertType string) *domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *domain.Alert
	for _, alert := range f.byID {
		if alert.Type != alertType {
			continue
		}
		if found == nil || alert.CreatedAt.After(found.CreatedAt) {
			cp := alert
			found = &cp
		}
	}
	return found
}

func (f *fakeAlerts) get(alertID uuid.UUID) domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[alertID]
}

func (f *fakeAlerts) backdateResolution(alertID uuid.UUID, resolvedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert := f.byID[alertID]
	alert.ResolvedAt = &resolvedAt
	f.byID[alertID] = alert
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	tokens map[string]ports.AccessClaims
}

func (f *fakeSigner) Sign(claims ports.AccessClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.tokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseAndValidate(raw string, now time.Time) (ports.AccessClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[raw]
	if !ok {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	if !now.Before(claims.ExpiresAt) {
		return ports.AccessClaims{}, domain.ErrTokenExpired
	}
	return claims, nil
}

type countingNotifier struct {
	mu      sync.Mutex
	counts  map[string]int
	failing bool
}

func (n *countingNotifier) Notify(_ context.Context, channel string, _ uuid.UUID, _ []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failing {
		return errors.New("dispatch unavailable")
	}
	n.counts[channel]++
	return nil
}

func (n *countingNotifier) count(channel string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[channel]
}

func (n *countingNotifier) fail(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing = v
}

// hashForTest mirrors the stored form of opaque tokens so fakes can be
// queried by the raw value a caller holds.
func hashForTest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type stubClassifier struct {
	result ports.RiskClassification
}

func (s *stubClassifier) ClassifyRisk(context.Context, string) (ports.RiskClassification, error) {
	return s.result, nil
}

type stubPredictor struct {
	result ports.RiskPrediction
}

func (s *stubPredictor) PredictRisk(context.Context, map[string]float64) (ports.RiskPrediction, error) {
	return s.result, nil
}
