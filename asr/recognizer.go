package asr

import (
	"context"
	"time"
)

// Encoding identifies the audio container/codec of a segment.
type Encoding string

const (
	EncodingLinear16 Encoding = "LINEAR16"
	EncodingFLAC     Encoding = "FLAC"
	EncodingOggOpus  Encoding = "OGG_OPUS"
	EncodingWebmOpus Encoding = "WEBM_OPUS"
	EncodingMP3      Encoding = "MP3"
	EncodingM4A      Encoding = "M4A"
	EncodingWAV      Encoding = "WAV"
)

// ValidEncoding reports whether enc is a supported audio encoding.
func ValidEncoding(enc Encoding) bool {
	switch enc {
	case EncodingLinear16, EncodingFLAC, EncodingOggOpus, EncodingWebmOpus, EncodingMP3, EncodingM4A, EncodingWAV:
		return true
	}
	return false
}

// SegmentRequest describes one audio segment submitted for transcription.
type SegmentRequest struct {
	// Audio is the raw segment payload.
	Audio []byte `json:"audio"`
	// Encoding is the audio encoding of the payload.
	Encoding Encoding `json:"encoding"`
	// SampleRateHertz is the sample rate of the payload.
	SampleRateHertz int `json:"sampleRateHertz"`
	// LanguageCode is an ISO 639-1 code or "auto" for detection.
	LanguageCode string `json:"languageCode"`
	// EnableAutomaticPunctuation requests punctuated output.
	EnableAutomaticPunctuation bool `json:"enableAutomaticPunctuation"`
	// EnableWordTimeOffsets requests word-level timing.
	EnableWordTimeOffsets bool `json:"enableWordTimeOffsets"`
	// ContextPrompt carries recent accepted text as a recognition hint.
	ContextPrompt string `json:"contextPrompt,omitempty"`
	// Temperature tunes decoding randomness (0 = deterministic).
	Temperature float64 `json:"temperature,omitempty"`
}

// Transcript is the transcription result for a single segment.
type Transcript struct {
	// Text is the transcribed text.
	Text string `json:"text"`
	// Confidence is the recognition confidence score (0.0 - 1.0).
	Confidence float64 `json:"confidence"`
	// DetectedLanguage is the detected source language (ISO 639-1 code).
	DetectedLanguage string `json:"detectedLanguage"`
	// Duration is the audio duration reported by the engine.
	Duration time.Duration `json:"duration"`
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy     bool   `json:"healthy"`
	Message     string `json:"message,omitempty"`
	ModelLoaded bool   `json:"modelLoaded"`
}

// Recognizer transcribes audio segments to text.
type Recognizer interface {
	// Recognize transcribes one segment. The call blocks until the engine
	// responds or ctx is done.
	Recognize(ctx context.Context, req SegmentRequest) (Transcript, error)

	// Health returns the current health status of the recognizer.
	Health() HealthStatus
}
