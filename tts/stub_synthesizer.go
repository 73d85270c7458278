package tts

import (
	"context"
	"errors"
	"sync"
	"time"

	"speechbridge/asr"
)

// ErrStubSynthesizer is returned when the stub is configured to fail.
var ErrStubSynthesizer = errors.New("stub synthesizer failure")

// StubSynthesizerConfig configures the stub synthesizer behavior.
type StubSynthesizerConfig struct {
	// ProcessingDelay simulates synthesis time.
	ProcessingDelay time.Duration
	// BytesPerCharacter sizes the generated audio payload.
	BytesPerCharacter int
	// ErrorOn lists call indices that fail with ErrStubSynthesizer.
	ErrorOn map[int]bool
}

// DefaultStubSynthesizerConfig returns sensible defaults for testing.
func DefaultStubSynthesizerConfig() *StubSynthesizerConfig {
	return &StubSynthesizerConfig{BytesPerCharacter: 32}
}

// StubSynthesizer is a test implementation that returns deterministic audio.
type StubSynthesizer struct {
	config *StubSynthesizerConfig

	mu    sync.Mutex
	calls int
	texts []string
}

// NewStubSynthesizer creates a new stub synthesizer with the given config.
func NewStubSynthesizer(config *StubSynthesizerConfig) *StubSynthesizer {
	if config == nil {
		config = DefaultStubSynthesizerConfig()
	}
	return &StubSynthesizer{config: config}
}

// Synthesize generates a deterministic audio payload sized from the text.
func (s *StubSynthesizer) Synthesize(ctx context.Context, text, languageCode string, encoding asr.Encoding) (Synthesis, error) {
	s.mu.Lock()
	index := s.calls
	s.calls++
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Synthesis{}, ctx.Err()
		}
	}

	if s.config.ErrorOn[index] {
		return Synthesis{}, ErrStubSynthesizer
	}

	size := len(text) * s.config.BytesPerCharacter
	audio := make([]byte, size)
	for i := range audio {
		audio[i] = byte(i % 251)
	}

	return Synthesis{
		AudioContent: audio,
		Encoding:     encoding,
		Duration:     time.Duration(len(text)) * 60 * time.Millisecond,
	}, nil
}

// Texts returns a copy of every text synthesized so far.
func (s *StubSynthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

// Health returns the health status of the stub synthesizer.
func (s *StubSynthesizer) Health() HealthStatus {
	return HealthStatus{
		Healthy: true,
		Message: "stub synthesizer ready",
	}
}
