package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"speechbridge/asr"
)

// HTTPSynthesizerConfig configures the HTTP synthesis client.
type HTTPSynthesizerConfig struct {
	// BaseURL is the engine endpoint, e.g. "https://api.example.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Timeout bounds a single synthesis call.
	Timeout time.Duration
}

// HTTPSynthesizer synthesizes speech via a JSON-over-HTTP neural TTS engine.
// The engine returns audio as base64 per the gateway contract.
type HTTPSynthesizer struct {
	config HTTPSynthesizerConfig
	client *http.Client
}

// NewHTTPSynthesizer creates a synthesizer backed by an HTTP TTS engine.
func NewHTTPSynthesizer(config HTTPSynthesizerConfig) *HTTPSynthesizer {
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	return &HTTPSynthesizer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type httpSynthesizeRequest struct {
	Text          string `json:"text"`
	LanguageCode  string `json:"languageCode"`
	AudioEncoding string `json:"audioEncoding"`
}

type httpSynthesizeResponse struct {
	AudioContent  string `json:"audioContent"`
	AudioEncoding string `json:"audioEncoding"`
	DurationMs    int64  `json:"durationMs"`
}

// Synthesize submits one text segment and decodes the engine response.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, languageCode string, encoding asr.Encoding) (Synthesis, error) {
	payload, err := json.Marshal(httpSynthesizeRequest{
		Text:          text,
		LanguageCode:  languageCode,
		AudioEncoding: string(encoding),
	})
	if err != nil {
		return Synthesis{}, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return Synthesis{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Synthesis{}, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Synthesis{}, fmt.Errorf("tts engine returned %d: %s", resp.StatusCode, string(detail))
	}

	var decoded httpSynthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Synthesis{}, fmt.Errorf("failed to decode synthesis response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return Synthesis{}, fmt.Errorf("failed to decode audio content: %w", err)
	}

	return Synthesis{
		AudioContent: audio,
		Encoding:     asr.Encoding(decoded.AudioEncoding),
		Duration:     time.Duration(decoded.DurationMs) * time.Millisecond,
	}, nil
}

// Health reports reachability of the configured endpoint.
func (s *HTTPSynthesizer) Health() HealthStatus {
	if s.config.BaseURL == "" {
		return HealthStatus{Healthy: false, Message: "tts endpoint not configured"}
	}
	return HealthStatus{Healthy: true, Message: "tts endpoint configured"}
}
