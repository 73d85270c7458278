package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"speechbridge/asr"
)

// Tier is a subscription level governing usage checks.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// ErrSegmentLimit is returned when a session exceeds its segment cap.
var ErrSegmentLimit = errors.New("session segment limit exceeded")

// Config holds the translation settings for a session.
type Config struct {
	// SourceLanguage is an ISO 639-1 code or "auto".
	SourceLanguage string `json:"sourceLanguage"`
	// TargetLanguage is an ISO 639-1 code.
	TargetLanguage string `json:"targetLanguage"`
	// EnableVoiceOutput requests synthesized audio for final results.
	EnableVoiceOutput bool `json:"enableVoiceOutput"`
	// AudioEncoding is the encoding of inbound audio.
	AudioEncoding asr.Encoding `json:"audioEncoding"`
	// SampleRate is the inbound sample rate in Hz (8000-48000).
	SampleRate int `json:"sampleRate"`
}

// Session is the per-identity state of an active translation session.
// At most one Session exists per identity; the Registry enforces this.
type Session struct {
	// ID is an opaque unique identifier generated at creation.
	ID string
	// Identity is the user or guest id owning this session.
	Identity string
	// Tier is the owner's subscription tier.
	Tier Tier
	// Config holds the translation settings.
	Config Config
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time

	// maxSegments caps SegmentsReceived; 0 means uncapped.
	maxSegments int

	mu           sync.Mutex
	lastActivity time.Time
	segments     int
	onIdle       func()
}

func newSession(identity string, tier Tier, cfg Config, maxSegments int, now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Identity:     identity,
		Tier:         tier,
		Config:       cfg,
		CreatedAt:    now,
		maxSegments:  maxSegments,
		lastActivity: now,
	}
}

// Touch records inbound activity. lastActivity never moves backwards.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

// LastActivity returns the most recent activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RecordSegment counts one inbound segment against the session cap.
func (s *Session) RecordSegment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSegments > 0 && s.segments >= s.maxSegments {
		return ErrSegmentLimit
	}
	s.segments++
	return nil
}

// SegmentsReceived returns the number of segments counted so far.
func (s *Session) SegmentsReceived() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments
}

// SetIdleCallback registers the function invoked when the sweep evicts
// this session. The attached connection uses it to notify the client.
func (s *Session) SetIdleCallback(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIdle = fn
}

func (s *Session) idleCallback() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onIdle
}
