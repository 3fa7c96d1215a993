package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session end reasons. All terminal states are modeled as Active == false;
// the reason is recorded for audit and never consulted for transitions.
const (
	SessionEndLogout  = "LOGGED_OUT"
	SessionEndEvicted = "EVICTED"
	SessionEndExpired = "EXPIRED"
)

// Session models one device/browser login instance. It is distinct from both
// token kinds and exists to enforce the concurrent-login ceiling and to
// support per-device logout.
type Session struct {
	SessionID      uuid.UUID
	PrincipalID    uuid.UUID
	SessionToken   string
	RefreshTokenID uuid.UUID
	DeviceName     string
	DeviceOS       string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
	Active         bool
	EndReason      string
	EndedAt        *time.Time
}
