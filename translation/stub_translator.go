package translation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStubTranslator is returned when the stub is configured to fail.
var ErrStubTranslator = errors.New("stub translator failure")

// StubTranslatorConfig configures the stub translator behavior.
type StubTranslatorConfig struct {
	// ProcessingDelay simulates translation processing time.
	ProcessingDelay time.Duration
	// Dictionary maps source text to translated text per target language.
	// If nil, returns "[LANG] " prefix + original text.
	Dictionary map[string]map[string]string // [targetLang][sourceText]translatedText
	// SupportedPairs defines available language pairs.
	SupportedPairs []LanguagePair
	// ErrorOn lists call indices that fail with ErrStubTranslator.
	ErrorOn map[int]bool
}

// DefaultStubTranslatorConfig returns sensible defaults for testing.
func DefaultStubTranslatorConfig() *StubTranslatorConfig {
	return &StubTranslatorConfig{
		Dictionary: map[string]map[string]string{
			"en": {
				"Hola":        "Hello",
				"Hola.":       "Hello.",
				"Hola mundo.": "Hello world.",
			},
			"es": {
				"Hello world.": "Hola mundo.",
				"How are you?": "¿Cómo estás?",
			},
		},
		SupportedPairs: []LanguagePair{
			{Source: "en", Target: "es"},
			{Source: "es", Target: "en"},
			{Source: "auto", Target: "en"},
			{Source: "auto", Target: "es"},
		},
	}
}

// StubTranslator is a test implementation that returns deterministic translations.
type StubTranslator struct {
	config *StubTranslatorConfig

	mu    sync.Mutex
	calls int
	texts []string
}

// NewStubTranslator creates a new stub translator with the given config.
func NewStubTranslator(config *StubTranslatorConfig) *StubTranslator {
	if config == nil {
		config = DefaultStubTranslatorConfig()
	}
	return &StubTranslator{config: config}
}

// Translate converts a single text segment.
func (s *StubTranslator) Translate(ctx context.Context, text string, sourceLang, targetLang string) (Translation, error) {
	s.mu.Lock()
	index := s.calls
	s.calls++
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Translation{}, ctx.Err()
		}
	}

	if s.config.ErrorOn[index] {
		return Translation{}, ErrStubTranslator
	}

	detected := sourceLang
	if detected == "auto" || detected == "" {
		detected = "es"
	}

	return Translation{
		SourceText:     text,
		TranslatedText: s.lookupTranslation(text, targetLang),
		SourceLang:     detected,
		TargetLang:     targetLang,
		Confidence:     0.92,
	}, nil
}

// lookupTranslation finds a translation in the dictionary or generates a default.
func (s *StubTranslator) lookupTranslation(text, targetLang string) string {
	if langDict, ok := s.config.Dictionary[targetLang]; ok {
		if translated, ok := langDict[text]; ok {
			return translated
		}
	}
	// Default: prefix with language code
	return "[" + targetLang + "] " + text
}

// Texts returns a copy of every source text submitted so far.
func (s *StubTranslator) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

// SupportedLanguages returns available language pairs.
func (s *StubTranslator) SupportedLanguages() []LanguagePair {
	return s.config.SupportedPairs
}

// Health returns the health status of the stub translator.
func (s *StubTranslator) Health() HealthStatus {
	return HealthStatus{
		Healthy: true,
		Message: "stub translator ready",
	}
}
