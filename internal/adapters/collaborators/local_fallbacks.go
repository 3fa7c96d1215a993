package collaborators

import (
	"context"
	"strings"

	"github.com/mindhaven/support-core/internal/ports"
)

// KeywordRiskClassifier is a local stand-in for the external classification
// model. It scores text by crisis keyword hits so dev and test runs still
// produce alerts without a model endpoint.
type KeywordRiskClassifier struct{}

var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"end my life",
	"self harm",
	"hurt myself",
	"no reason to live",
	"want to die",
}

func (KeywordRiskClassifier) ClassifyRisk(_ context.Context, text string) (ports.RiskClassification, error) {
	lowered := strings.ToLower(text)
	var hits []string
	for _, kw := range crisisKeywords {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}

	score := float64(len(hits)) * 0.45
	if score > 1 {
		score = 1
	}
	return ports.RiskClassification{Score: score, Indicators: hits}, nil
}

// StaticRiskPredictor returns zero-risk predictions. It keeps the prediction
// path wired in environments without a model endpoint.
type StaticRiskPredictor struct{}

func (StaticRiskPredictor) PredictRisk(_ context.Context, _ map[string]float64) (ports.RiskPrediction, error) {
	return ports.RiskPrediction{}, nil
}
