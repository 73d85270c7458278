package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTranslatorConfig configures the HTTP translation client.
type HTTPTranslatorConfig struct {
	// BaseURL is the engine endpoint, e.g. "https://api.example.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Timeout bounds a single translation call.
	Timeout time.Duration
	// Pairs is the advertised set of supported language pairs.
	Pairs []LanguagePair
}

// HTTPTranslator translates text via a JSON-over-HTTP translation engine.
type HTTPTranslator struct {
	config HTTPTranslatorConfig
	client *http.Client
}

// NewHTTPTranslator creates a translator backed by an HTTP translation engine.
func NewHTTPTranslator(config HTTPTranslatorConfig) *HTTPTranslator {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &HTTPTranslator{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type httpTranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

type httpTranslateResponse struct {
	TranslatedText     string  `json:"translatedText"`
	DetectedSourceLang string  `json:"detectedSourceLang"`
	TargetLang         string  `json:"targetLang"`
	Confidence         float64 `json:"confidence"`
}

// Translate submits one text segment and decodes the engine response.
func (t *HTTPTranslator) Translate(ctx context.Context, text string, sourceLang, targetLang string) (Translation, error) {
	payload, err := json.Marshal(httpTranslateRequest{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return Translation{}, fmt.Errorf("failed to encode translation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return Translation{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Translation{}, fmt.Errorf("translation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Translation{}, fmt.Errorf("translation engine returned %d: %s", resp.StatusCode, string(detail))
	}

	var decoded httpTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Translation{}, fmt.Errorf("failed to decode translation response: %w", err)
	}

	return Translation{
		SourceText:     text,
		TranslatedText: decoded.TranslatedText,
		SourceLang:     decoded.DetectedSourceLang,
		TargetLang:     decoded.TargetLang,
		Confidence:     decoded.Confidence,
	}, nil
}

// SupportedLanguages returns the configured language pairs.
func (t *HTTPTranslator) SupportedLanguages() []LanguagePair {
	return t.config.Pairs
}

// Health reports reachability of the configured endpoint.
func (t *HTTPTranslator) Health() HealthStatus {
	if t.config.BaseURL == "" {
		return HealthStatus{Healthy: false, Message: "translation endpoint not configured"}
	}
	return HealthStatus{Healthy: true, Message: "translation endpoint configured"}
}
