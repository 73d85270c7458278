package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrSessionExists is returned when an identity already has an active session.
	ErrSessionExists = errors.New("session already active for identity")
	// ErrSessionNotFound is returned when no session exists for an identity.
	ErrSessionNotFound = errors.New("session not found")
)

const (
	// DefaultIdleTimeout is how long a session may stay inactive before
	// the sweep reclaims it.
	DefaultIdleTimeout = 5 * time.Minute
	// DefaultSweepInterval is how often the sweep runs.
	DefaultSweepInterval = 60 * time.Second
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// MaxSegments caps segments per session; 0 means uncapped.
	MaxSegments int
}

// Registry tracks at most one active Session per identity and reclaims
// idle sessions on a periodic sweep. All mutations share one mutex so two
// near-simultaneous creates for the same identity cannot both succeed.
type Registry struct {
	config RegistryConfig
	logger *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*Session

	sweepOnce sync.Once
	started   atomic.Bool
	stop      chan struct{}
	stopped   chan struct{}
}

// NewRegistry creates an empty registry. The sweep does not run until
// Start is called.
func NewRegistry(config RegistryConfig, logger *zap.SugaredLogger) *Registry {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	return &Registry{
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Create registers a new session for identity. It fails with
// ErrSessionExists if the identity already has one.
func (r *Registry) Create(identity string, tier Tier, cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[identity]; exists {
		return nil, ErrSessionExists
	}

	s := newSession(identity, tier, cfg, r.config.MaxSegments, time.Now())
	r.sessions[identity] = s
	return s, nil
}

// Get returns the active session for identity, if any.
func (r *Registry) Get(identity string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[identity]
	return s, ok
}

// Remove deletes the session for identity. Removing an absent identity is
// a no-op.
func (r *Registry) Remove(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identity)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Start launches the idle sweep. It returns immediately; the sweep stops
// when ctx is done or Stop is called.
func (r *Registry) Start(ctx context.Context) {
	r.sweepOnce.Do(func() {
		r.started.Store(true)
		go r.run(ctx)
	})
}

// Stop halts the sweep and waits for it to exit. A no-op when the sweep
// was never started.
func (r *Registry) Stop() {
	if !r.started.Load() {
		return
	}
	close(r.stop)
	<-r.stopped
}

func (r *Registry) run(ctx context.Context) {
	defer close(r.stopped)

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.SweepOnce(now)
		}
	}
}

// SweepOnce removes every session idle longer than the configured timeout,
// invoking each victim's idle callback before removal. Exposed so tests
// can drive eviction deterministically.
func (r *Registry) SweepOnce(now time.Time) int {
	r.mu.Lock()
	var victims []*Session
	for identity, s := range r.sessions {
		if now.Sub(s.LastActivity()) > r.config.IdleTimeout {
			victims = append(victims, s)
			delete(r.sessions, identity)
		}
	}
	r.mu.Unlock()

	for _, s := range victims {
		if r.logger != nil {
			r.logger.Infow("session reclaimed after idle timeout", "identity", s.Identity, "sessionID", s.ID)
		}
		if cb := s.idleCallback(); cb != nil {
			cb()
		}
	}
	return len(victims)
}
