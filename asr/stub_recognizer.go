package asr

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStubRecognizer is returned when the stub is configured to fail.
var ErrStubRecognizer = errors.New("stub recognizer failure")

// StubRecognizerConfig configures the stub recognizer behavior.
type StubRecognizerConfig struct {
	// ProcessingDelay simulates engine inference time per segment.
	ProcessingDelay time.Duration
	// DefaultLanguage is the language to report in transcripts.
	DefaultLanguage string
	// Transcripts maps call indices to predetermined text.
	// If nil, generates "segment N" text.
	Transcripts map[int]string
	// ErrorOn lists call indices that fail with ErrStubRecognizer.
	ErrorOn map[int]bool
}

// DefaultStubRecognizerConfig returns sensible defaults for testing.
func DefaultStubRecognizerConfig() *StubRecognizerConfig {
	return &StubRecognizerConfig{
		DefaultLanguage: "en",
		Transcripts: map[int]string{
			0: "Hello there",
			1: "Hello there, how are you?",
			2: "I am fine.",
		},
	}
}

// StubRecognizer is a test implementation that returns deterministic
// transcripts and records every request it receives.
type StubRecognizer struct {
	config *StubRecognizerConfig

	mu       sync.Mutex
	calls    int
	requests []SegmentRequest
}

// NewStubRecognizer creates a new stub recognizer with the given config.
func NewStubRecognizer(config *StubRecognizerConfig) *StubRecognizer {
	if config == nil {
		config = DefaultStubRecognizerConfig()
	}
	return &StubRecognizer{config: config}
}

// Recognize returns the scripted transcript for the current call index.
func (s *StubRecognizer) Recognize(ctx context.Context, req SegmentRequest) (Transcript, error) {
	s.mu.Lock()
	index := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		}
	}

	if s.config.ErrorOn[index] {
		return Transcript{}, ErrStubRecognizer
	}

	text, ok := s.config.Transcripts[index]
	if !ok {
		text = "segment " + string(rune('0'+index%10))
	}

	lang := s.config.DefaultLanguage
	if req.LanguageCode != "" && req.LanguageCode != "auto" {
		lang = req.LanguageCode
	}

	return Transcript{
		Text:             text,
		Confidence:       0.95,
		DetectedLanguage: lang,
		Duration:         time.Duration(len(req.Audio)) * time.Millisecond,
	}, nil
}

// Requests returns a copy of every request received so far.
func (s *StubRecognizer) Requests() []SegmentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SegmentRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of Recognize invocations so far.
func (s *StubRecognizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Health returns the health status of the stub recognizer.
func (s *StubRecognizer) Health() HealthStatus {
	return HealthStatus{
		Healthy:     true,
		Message:     "stub recognizer ready",
		ModelLoaded: true,
	}
}
