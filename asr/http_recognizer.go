package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// HTTPRecognizerConfig configures the HTTP transcription client.
type HTTPRecognizerConfig struct {
	// BaseURL is the engine endpoint, e.g. "https://api.example.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model selects the transcription model.
	Model string
	// Timeout bounds a single transcription call.
	Timeout time.Duration
}

// HTTPRecognizer transcribes segments via a Whisper-style HTTP endpoint:
// one multipart POST per segment, JSON response.
type HTTPRecognizer struct {
	config HTTPRecognizerConfig
	client *http.Client
}

// NewHTTPRecognizer creates a recognizer backed by an HTTP transcription engine.
func NewHTTPRecognizer(config HTTPRecognizerConfig) *HTTPRecognizer {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type httpTranscriptResponse struct {
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	DetectedLanguage string  `json:"detectedLanguage"`
	DurationMs       int64   `json:"durationMs"`
}

// Recognize submits one segment and decodes the engine response.
func (r *HTTPRecognizer) Recognize(ctx context.Context, req SegmentRequest) (Transcript, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"model":       r.config.Model,
		"encoding":    string(req.Encoding),
		"sample_rate": strconv.Itoa(req.SampleRateHertz),
	}
	if req.LanguageCode != "" && req.LanguageCode != "auto" {
		fields["language"] = req.LanguageCode
	}
	if req.ContextPrompt != "" {
		fields["prompt"] = req.ContextPrompt
	}
	if req.Temperature > 0 {
		fields["temperature"] = strconv.FormatFloat(req.Temperature, 'f', -1, 64)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return Transcript{}, fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	fw, err := mw.CreateFormFile("file", "segment."+fileExtension(req.Encoding))
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return Transcript{}, fmt.Errorf("failed to write audio payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return Transcript{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Transcript{}, fmt.Errorf("transcription engine returned %d: %s", resp.StatusCode, string(detail))
	}

	var decoded httpTranscriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Transcript{}, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return Transcript{
		Text:             decoded.Text,
		Confidence:       decoded.Confidence,
		DetectedLanguage: decoded.DetectedLanguage,
		Duration:         time.Duration(decoded.DurationMs) * time.Millisecond,
	}, nil
}

// Health reports reachability of the configured endpoint.
func (r *HTTPRecognizer) Health() HealthStatus {
	if r.config.BaseURL == "" {
		return HealthStatus{Healthy: false, Message: "transcription endpoint not configured"}
	}
	return HealthStatus{Healthy: true, Message: "transcription endpoint configured", ModelLoaded: true}
}

func fileExtension(enc Encoding) string {
	switch enc {
	case EncodingFLAC:
		return "flac"
	case EncodingOggOpus:
		return "ogg"
	case EncodingWebmOpus:
		return "webm"
	case EncodingMP3:
		return "mp3"
	case EncodingM4A:
		return "m4a"
	default:
		return "wav"
	}
}
