package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccessClaims is the adapter-neutral claim set carried by access tokens:
// subject principal, username, role list, issuer, and the validity window.
type AccessClaims struct {
	PrincipalID uuid.UUID `json:"principal_id"`
	Username    string    `json:"username"`
	Roles       []string  `json:"roles"`
	Issuer      string    `json:"issuer"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenSigner produces and verifies self-contained access tokens. Verification
// is stateless: it never consults the store, which is why access tokens are
// intentionally short-lived and not individually revocable.
type TokenSigner interface {
	Sign(claims AccessClaims) (string, error)
	// ParseAndValidate rejects bad signatures and issuer mismatches with
	// domain.ErrInvalidToken and expiry with domain.ErrTokenExpired,
	// evaluated against the supplied clock at second granularity.
	ParseAndValidate(raw string, now time.Time) (AccessClaims, error)
}
