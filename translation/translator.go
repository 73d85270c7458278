package translation

import "context"

// Translation represents a translated text segment.
type Translation struct {
	// SourceText is the original text that was translated.
	SourceText string `json:"sourceText"`
	// TranslatedText is the translated result.
	TranslatedText string `json:"translatedText"`
	// SourceLang is the detected or requested source language (ISO 639-1 code).
	SourceLang string `json:"sourceLang"`
	// TargetLang is the target language (ISO 639-1 code).
	TargetLang string `json:"targetLang"`
	// Confidence is the translation confidence score (0.0 - 1.0).
	Confidence float64 `json:"confidence"`
}

// LanguagePair represents a supported source-target language combination.
type LanguagePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Translator converts text between languages.
type Translator interface {
	// Translate converts a single text segment to the target language.
	// sourceLang may be "auto" to let the engine detect the source.
	Translate(ctx context.Context, text string, sourceLang, targetLang string) (Translation, error)

	// SupportedLanguages returns available language pairs.
	SupportedLanguages() []LanguagePair

	// Health returns the current health status of the translator.
	Health() HealthStatus
}
