package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity is an ordered scale. The numeric values encode the ordering used
// by the escalation invariant: severity only ever increases on an open alert.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity maps the wire form back to the ordered scale.
func ParseSeverity(raw string) (Severity, bool) {
	switch raw {
	case "LOW":
		return SeverityLow, true
	case "MEDIUM":
		return SeverityMedium, true
	case "HIGH":
		return SeverityHigh, true
	case "CRITICAL":
		return SeverityCritical, true
	default:
		return 0, false
	}
}

// Alert types. TOKEN_REUSE is raised internally on refresh-token replay and
// shares the security class of REPEATED_FAILED_LOGIN.
const (
	AlertTypeCrisis              = "CRISIS"
	AlertTypeChatCrisis          = "CHAT_CRISIS"
	AlertTypeHighRiskPrediction  = "HIGH_RISK_PREDICTION"
	AlertTypeRepeatedFailedLogin = "REPEATED_FAILED_LOGIN"
	AlertTypeTokenReuse          = "TOKEN_REUSE"
	AlertTypeSystem              = "SYSTEM"
)

// ValidAlertType reports whether the type is one of the known enum values.
func ValidAlertType(t string) bool {
	switch t {
	case AlertTypeCrisis, AlertTypeChatCrisis, AlertTypeHighRiskPrediction,
		AlertTypeRepeatedFailedLogin, AlertTypeTokenReuse, AlertTypeSystem:
		return true
	default:
		return false
	}
}

// Alert is a recorded risk signal with an escalation/notification/resolution
// lifecycle. The subject principal is optional: some alerts are system-wide,
// and historical alerts outlive deactivated principals for audit.
type Alert struct {
	AlertID              uuid.UUID
	PrincipalID          *uuid.UUID
	Type                 string
	Severity             Severity
	TriggerData          string
	AssignedTo           string
	Resolved             bool
	ResolvedBy           string
	ResolutionNotes      string
	EmergencyNotified    bool
	ProfessionalNotified bool
	CreatedAt            time.Time
	ResolvedAt           *time.Time
	ArchivedAt           *time.Time
}

// RequiresImmediateNotify reports whether raising this alert must fan out to
// the notification channels synchronously. Crisis response never waits on a
// batch job.
func (a Alert) RequiresImmediateNotify() bool {
	return a.Severity == SeverityCritical || a.Type == AlertTypeCrisis
}

// CanEscalateTo enforces the monotonicity invariant: strictly higher severity
// and only while open.
func (a Alert) CanEscalateTo(next Severity) bool {
	return !a.Resolved && next > a.Severity
}
