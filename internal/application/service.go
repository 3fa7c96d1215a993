package application

import (
	"time"

	"github.com/mindhaven/support-core/internal/ports"
)

type Service struct {
	cfg           Config
	principals    ports.PrincipalRepository
	tokens        ports.RefreshTokenRepository
	sessions      ports.SessionRepository
	loginAttempts ports.LoginAttemptRepository
	alerts        ports.AlertRepository
	lockouts      ports.LockoutStore
	hasher        ports.PasswordHasher
	tokenSigner   ports.TokenSigner
	notifier      ports.Notifier
	classifier    ports.RiskClassifier
	predictor     ports.RiskPredictor
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Principals    ports.PrincipalRepository
	Tokens        ports.RefreshTokenRepository
	Sessions      ports.SessionRepository
	LoginAttempts ports.LoginAttemptRepository
	Alerts        ports.AlertRepository
	Lockouts      ports.LockoutStore
	Hasher        ports.PasswordHasher
	TokenSigner   ports.TokenSigner
	Notifier      ports.Notifier
	Classifier    ports.RiskClassifier
	Predictor     ports.RiskPredictor
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:           deps.Config,
		principals:    deps.Principals,
		tokens:        deps.Tokens,
		sessions:      deps.Sessions,
		loginAttempts: deps.LoginAttempts,
		alerts:        deps.Alerts,
		lockouts:      deps.Lockouts,
		hasher:        deps.Hasher,
		tokenSigner:   deps.TokenSigner,
		notifier:      deps.Notifier,
		classifier:    deps.Classifier,
		predictor:     deps.Predictor,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
