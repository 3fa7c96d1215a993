package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mindhaven/support-core/internal/ports"
)

// HTTPRiskClassifier calls the external text classification model over HTTP.
// The model is a black box; only score and indicators are consumed.
type HTTPRiskClassifier struct {
	client  *http.Client
	baseURL string
}

func NewHTTPRiskClassifier(baseURL string) *HTTPRiskClassifier {
	return &HTTPRiskClassifier{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
	}
}

func (c *HTTPRiskClassifier) ClassifyRisk(ctx context.Context, text string) (ports.RiskClassification, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return ports.RiskClassification{}, err
	}

	var out ports.RiskClassification
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/classify", body, &out); err != nil {
		return ports.RiskClassification{}, fmt.Errorf("classify risk: %w", err)
	}
	return out, nil
}

// HTTPRiskPredictor calls the external prediction model over HTTP.
type HTTPRiskPredictor struct {
	client  *http.Client
	baseURL string
}

func NewHTTPRiskPredictor(baseURL string) *HTTPRiskPredictor {
	return &HTTPRiskPredictor{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
	}
}

func (c *HTTPRiskPredictor) PredictRisk(ctx context.Context, features map[string]float64) (ports.RiskPrediction, error) {
	body, err := json.Marshal(map[string]any{"features": features})
	if err != nil {
		return ports.RiskPrediction{}, err
	}

	var out ports.RiskPrediction
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/predict", body, &out); err != nil {
		return ports.RiskPrediction{}, fmt.Errorf("predict risk: %w", err)
	}
	return out, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
