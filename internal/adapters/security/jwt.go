package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
)

// MinSecretBytes is the floor for the HS512 signing secret. Anything shorter
// is rejected at startup as a configuration error.
const MinSecretBytes = 32

// HMACSigner implements HS512 access-token signing and stateless parsing.
// The secret is process-wide and loaded once; rotation requires a restart.
type HMACSigner struct {
	secret []byte
	issuer string
}

// NewHMACSigner builds a signer from the configured secret and issuer.
func NewHMACSigner(secret, issuer string) (*HMACSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is required", domain.ErrConfiguration)
	}
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: signing secret must be at least %d bytes", domain.ErrConfiguration, MinSecretBytes)
	}
	if issuer == "" {
		return nil, fmt.Errorf("%w: issuer is required", domain.ErrConfiguration)
	}
	return &HMACSigner{secret: []byte(secret), issuer: issuer}, nil
}

// NewEphemeralHMACSigner creates a signer with a random secret for local/dev
// use. Tokens do not survive a restart.
func NewEphemeralHMACSigner(issuer string) (*HMACSigner, error) {
	raw := make([]byte, MinSecretBytes*2)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return &HMACSigner{secret: raw, issuer: issuer}, nil
}

type accessJWTClaims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

func (s *HMACSigner) Sign(claims ports.AccessClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, accessJWTClaims{
		Username: claims.Username,
		Roles:    claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.PrincipalID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(s.secret)
}

// ParseAndValidate verifies the signature and claims against the supplied
// clock. Timestamps compare at second granularity in UTC with zero leeway.
func (s *HMACSigner) ParseAndValidate(raw string, now time.Time) (ports.AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now.UTC() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.AccessClaims{}, domain.ErrTokenExpired
		}
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*accessJWTClaims)
	if !ok || !parsed.Valid {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}

	principalID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	// exp is required by the parse options, iat is not; a well-signed token
	// can still omit either, so never dereference an absent NumericDate.
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	return ports.AccessClaims{
		PrincipalID: principalID,
		Username:    claims.Username,
		Roles:       claims.Roles,
		Issuer:      claims.Issuer,
		IssuedAt:    claims.IssuedAt.Time.UTC(),
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}, nil
}
