// Package auth resolves connection credentials to identities. Token
// issuance and verification mechanics live outside this service; the
// protocol only needs a Verifier to map a presented credential to an
// identity, with a guest fallback when none is presented.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"speechbridge/session"
)

// ErrInvalidToken is returned for a malformed, unknown or expired credential.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is a resolved connection identity.
type Identity struct {
	// UserID is the authenticated user id or a generated guest id.
	UserID string
	// Tier is the subscription tier used for usage checks.
	Tier session.Tier
	// Guest marks identities that bypass usage limits and persistence.
	Guest bool
}

// Verifier maps a bearer credential to an identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// StaticVerifier is a map-backed Verifier for tests and development.
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]Identity
}

// NewStaticVerifier creates a verifier over a fixed token set.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	if tokens == nil {
		tokens = make(map[string]Identity)
	}
	return &StaticVerifier{tokens: tokens}
}

// Add registers a token.
func (v *StaticVerifier) Add(token string, identity Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = identity
}

// Verify resolves a token or fails with ErrInvalidToken.
func (v *StaticVerifier) Verify(token string) (Identity, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	identity, ok := v.tokens[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}

// ResolverConfig configures request identity resolution.
type ResolverConfig struct {
	// DevBypass enables the elevated anonymous identity behind the dev
	// flag. Never enable in production.
	DevBypass bool
}

// Resolver extracts an identity from an incoming connection request.
type Resolver struct {
	config   ResolverConfig
	verifier Verifier
}

// NewResolver creates a resolver over the given verifier.
func NewResolver(verifier Verifier, config ResolverConfig) *Resolver {
	return &Resolver{config: config, verifier: verifier}
}

// Resolve determines the identity for a connection request. A bearer
// credential (Authorization header or token query parameter) is verified;
// its absence yields a free-tier guest identity. The dev flag yields an
// elevated anonymous identity when the bypass is enabled.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	if r.config.DevBypass && req.URL.Query().Get("dev") == "1" {
		return Identity{
			UserID: "dev-" + uuid.NewString(),
			Tier:   session.TierPremium,
			Guest:  true,
		}, nil
	}

	token := bearerToken(req)
	if token == "" {
		return Identity{
			UserID: "guest-" + uuid.NewString(),
			Tier:   session.TierFree,
			Guest:  true,
		}, nil
	}

	return r.verifier.Verify(token)
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(req.URL.Query().Get("token"))
}
