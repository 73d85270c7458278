package di

import (
	"speechbridge/asr"
	"speechbridge/auth"
	"speechbridge/history"
	"speechbridge/translation"
	"speechbridge/tts"
	"speechbridge/usage"
)

// Container holds the collaborators consumed by the session protocol.
// It enables dependency injection for both production and test environments.
type Container struct {
	Recognizer  asr.Recognizer
	Translator  translation.Translator
	Synthesizer tts.Synthesizer
	History     history.Store
	Usage       usage.Checker
	Verifier    auth.Verifier
}

// ContainerOption configures a container during construction.
type ContainerOption func(*Container)

// WithRecognizer sets the transcription gateway implementation.
func WithRecognizer(r asr.Recognizer) ContainerOption {
	return func(c *Container) { c.Recognizer = r }
}

// WithTranslator sets the translation gateway implementation.
func WithTranslator(t translation.Translator) ContainerOption {
	return func(c *Container) { c.Translator = t }
}

// WithSynthesizer sets the TTS gateway implementation.
func WithSynthesizer(s tts.Synthesizer) ContainerOption {
	return func(c *Container) { c.Synthesizer = s }
}

// WithHistory sets the exchange history store.
func WithHistory(h history.Store) ContainerOption {
	return func(c *Container) { c.History = h }
}

// WithUsage sets the usage-limit checker.
func WithUsage(u usage.Checker) ContainerOption {
	return func(c *Container) { c.Usage = u }
}

// WithVerifier sets the credential verifier.
func WithVerifier(v auth.Verifier) ContainerOption {
	return func(c *Container) { c.Verifier = v }
}

// NewContainer creates a container with the given options.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTestContainer creates a container with all stub implementations
// for testing without external services.
func NewTestContainer() *Container {
	return &Container{
		Recognizer:  asr.NewStubRecognizer(nil),
		Translator:  translation.NewStubTranslator(nil),
		Synthesizer: tts.NewStubSynthesizer(nil),
		History:     history.NewMemoryStore(),
		Usage:       usage.NewTierChecker(nil),
		Verifier:    auth.NewStaticVerifier(nil),
	}
}
