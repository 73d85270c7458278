package tts

import (
	"context"
	"time"

	"speechbridge/asr"
)

// Synthesis represents synthesized speech for one text input.
type Synthesis struct {
	// AudioContent is the raw synthesized audio.
	AudioContent []byte `json:"audioContent"`
	// Encoding is the audio encoding of the content.
	Encoding asr.Encoding `json:"audioEncoding"`
	// Duration of the synthesized audio.
	Duration time.Duration `json:"duration"`
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	// Synthesize generates audio for the given text in the given language.
	Synthesize(ctx context.Context, text, languageCode string, encoding asr.Encoding) (Synthesis, error)

	// Health returns the current health status of the synthesizer.
	Health() HealthStatus
}
