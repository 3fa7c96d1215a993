package postgres

import (
	"github.com/mindhaven/support-core/internal/ports"
	"gorm.io/gorm"
)

// Repositories bundles the gorm-backed implementations of the persistence
// ports so the bootstrap wires them in one call.
type Repositories struct {
	Principals    ports.PrincipalRepository
	RefreshTokens ports.RefreshTokenRepository
	Sessions      ports.SessionRepository
	LoginAttempts ports.LoginAttemptRepository
	Alerts        ports.AlertRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Principals:    &principalRepository{db: db},
		RefreshTokens: &refreshTokenRepository{db: db},
		Sessions:      &sessionRepository{db: db},
		LoginAttempts: &loginAttemptRepository{db: db},
		Alerts:        &alertRepository{db: db},
	}
}
