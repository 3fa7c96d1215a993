package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether the username or the password failed,
	// and is also returned for locked accounts so lockout state never leaks.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers signature mismatch, malformed claims, and issuer
	// mismatch. Verification failures surface only as this or ErrTokenExpired.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenReused signals refresh-token replay: the token was already spent.
	// The caller sees a generic 401; full revocation and the security alert
	// happen before the error is returned.
	ErrTokenReused = errors.New("refresh token reused")
	// ErrInvalidTransition rejects illegal alert-state changes, such as
	// lowering severity or escalating a resolved alert.
	ErrInvalidTransition = errors.New("invalid alert transition")
	// ErrConfiguration is fatal at startup, never surfaced per-request.
	ErrConfiguration = errors.New("configuration error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
)
