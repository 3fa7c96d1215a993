package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/domain"
	"github.com/mindhaven/support-core/internal/ports"
)

// IngestChatMessage runs a chat text through the black-box crisis classifier
// and raises an alert when the score or indicator list crosses the configured
// thresholds. The classifier's internals are never consulted, only its
// outputs.
func (s *Service) IngestChatMessage(ctx context.Context, req ChatSignalRequest) (ChatSignalResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ChatSignalResponse{}, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}

	classification, err := s.classifier.ClassifyRisk(ctx, text)
	if err != nil {
		return ChatSignalResponse{}, fmt.Errorf("classify risk: %w", err)
	}

	resp := ChatSignalResponse{
		Score:      classification.Score,
		Indicators: classification.Indicators,
	}

	alertType, severity, raise := s.chatAlertFor(classification)
	if !raise {
		return resp, nil
	}

	trigger, _ := json.Marshal(map[string]any{
		"score":      classification.Score,
		"indicators": classification.Indicators,
	})
	alert, err := s.Raise(ctx, RaiseAlertRequest{
		PrincipalID: req.PrincipalID,
		Type:        alertType,
		Severity:    severity.String(),
		TriggerData: string(trigger),
	})
	if err != nil {
		return ChatSignalResponse{}, err
	}
	resp.AlertID = &alert.AlertID
	return resp, nil
}

// IngestPrediction feeds prediction-model scores into the escalator. The
// highest of the three dimensions decides severity.
func (s *Service) IngestPrediction(ctx context.Context, req PredictionSignalRequest) (PredictionSignalResponse, error) {
	if req.PrincipalID == uuid.Nil {
		return PredictionSignalResponse{}, fmt.Errorf("%w: principal_id is required", domain.ErrInvalidInput)
	}
	if len(req.Features) == 0 {
		return PredictionSignalResponse{}, fmt.Errorf("%w: features are required", domain.ErrInvalidInput)
	}

	prediction, err := s.predictor.PredictRisk(ctx, req.Features)
	if err != nil {
		return PredictionSignalResponse{}, fmt.Errorf("predict risk: %w", err)
	}

	resp := PredictionSignalResponse{
		Stress:     prediction.Stress,
		Depression: prediction.Depression,
		Anxiety:    prediction.Anxiety,
	}

	peak := prediction.Stress
	if prediction.Depression > peak {
		peak = prediction.Depression
	}
	if prediction.Anxiety > peak {
		peak = prediction.Anxiety
	}
	if peak < s.cfg.PredictionHighRisk {
		return resp, nil
	}

	severity := domain.SeverityHigh
	if peak >= s.cfg.PredictionCritical {
		severity = domain.SeverityCritical
	}

	trigger, _ := json.Marshal(map[string]any{
		"stress":     prediction.Stress,
		"depression": prediction.Depression,
		"anxiety":    prediction.Anxiety,
	})
	alert, err := s.Raise(ctx, RaiseAlertRequest{
		PrincipalID: &req.PrincipalID,
		Type:        domain.AlertTypeHighRiskPrediction,
		Severity:    severity.String(),
		TriggerData: string(trigger),
	})
	if err != nil {
		return PredictionSignalResponse{}, err
	}
	resp.AlertID = &alert.AlertID
	return resp, nil
}

func (s *Service) chatAlertFor(c ports.RiskClassification) (string, domain.Severity, bool) {
	switch {
	case c.Score >= s.cfg.ChatCriticalScore:
		return domain.AlertTypeCrisis, domain.SeverityCritical, true
	case c.Score >= s.cfg.ChatCrisisScore:
		return domain.AlertTypeChatCrisis, domain.SeverityHigh, true
	case len(c.Indicators) > 0:
		return domain.AlertTypeChatCrisis, domain.SeverityMedium, true
	default:
		return "", 0, false
	}
}
