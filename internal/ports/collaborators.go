package ports

import (
	"context"

	"github.com/google/uuid"
)

// Notification channels used by the incident escalator.
const (
	ChannelEmergency    = "emergency"
	ChannelProfessional = "professional"
)

// Notifier is the outbound notification port. Implementations may block on
// network I/O; the escalator guarantees at-most-once dispatch per channel per
// alert via the claim flags, so a Notify call is never repeated for a channel
// that already succeeded.
type Notifier interface {
	Notify(ctx context.Context, channel string, alertID uuid.UUID, payload []byte) error
}

// RiskClassification is the black-box classifier output for one text.
type RiskClassification struct {
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators"`
}

// RiskClassifier wraps the external sentiment/crisis-keyword model. Only its
// outputs are consumed, never its internals.
type RiskClassifier interface {
	ClassifyRisk(ctx context.Context, text string) (RiskClassification, error)
}

// RiskPrediction is the black-box prediction-model output.
type RiskPrediction struct {
	Stress     float64 `json:"stress"`
	Depression float64 `json:"depression"`
	Anxiety    float64 `json:"anxiety"`
}

// RiskPredictor wraps the external prediction model.
type RiskPredictor interface {
	PredictRisk(ctx context.Context, features map[string]float64) (RiskPrediction, error)
}
