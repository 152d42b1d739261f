package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"news-hand/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// InferenceError meldet eine Nicht-2xx-Antwort des Inference-Endpoints.
type InferenceError struct {
	StatusCode int
	Message    string
}

func (e *InferenceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("huggingface returned status %d", e.StatusCode)
}

// Retryable meldet, ob ein erneuter Versuch sinnvoll ist. Nur 5xx gilt als
// vorübergehend; alles andere ist endgültig.
func (e *InferenceError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Client kapselt den Aufruf des Bias-Scoring-Endpoints.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewClient erstellt einen neuen Hugging-Face-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{Config: cfg, Logger: logger}
}

// Score schickt den Text an den Endpoint und parst den Bias-Score aus der
// Antwort.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	apiURL := c.Config.HuggingFaceURL()
	log := c.Logger.With(zap.String("endpoint", apiURL))

	requestBody := map[string]interface{}{
		"inputs":     text,
		"parameters": map[string]interface{}{},
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal huggingface payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Config.HuggingFaceToken()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Der Endpoint soll beim Kaltstart auf das Modell warten statt sofort
	// mit 503 zu antworten.
	req.Header.Set("X-Wait-For-Model", "true")

	log.Debug("Sende Text an Inference-Endpoint", zap.Int("chars", len(text)))

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("Inference-Endpoint antwortete mit Fehlerstatus",
			zap.Int("status", resp.StatusCode), zap.String("body", snippet(responseBody)))
		return 0, &InferenceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("huggingface returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody))),
		}
	}

	score, err := parseScore(responseBody)
	if err != nil {
		log.Warn("Antwort des Inference-Endpoints nicht lesbar", zap.String("body", snippet(responseBody)))
		return 0, err
	}

	log.Debug("Bias-Score geparst", zap.Float64("score", score))
	return score, nil
}

// snippet kürzt Antwort-Bodies fürs Log.
func snippet(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	const maxLen = 200
	if len(trimmed) > maxLen {
		return trimmed[:maxLen] + "..."
	}
	return trimmed
}
