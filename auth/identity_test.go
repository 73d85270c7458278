package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speechbridge/session"
)

func newTestResolver(devBypass bool) *Resolver {
	verifier := NewStaticVerifier(map[string]Identity{
		"valid-token": {UserID: "user-42", Tier: session.TierBasic},
	})
	return NewResolver(verifier, ResolverConfig{DevBypass: devBypass})
}

func TestResolve_BearerHeader(t *testing.T) {
	r := newTestResolver(false)

	req := httptest.NewRequest("GET", "/api/ws", nil)
	req.Header.Set("Authorization", "Bearer valid-token")

	identity, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.UserID)
	assert.Equal(t, session.TierBasic, identity.Tier)
	assert.False(t, identity.Guest)
}

func TestResolve_QueryToken(t *testing.T) {
	r := newTestResolver(false)

	req := httptest.NewRequest("GET", "/api/ws?token=valid-token", nil)

	identity, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.UserID)
}

func TestResolve_BadTokenRejected(t *testing.T) {
	r := newTestResolver(false)

	req := httptest.NewRequest("GET", "/api/ws?token=bogus", nil)

	_, err := r.Resolve(req)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve_GuestFallback(t *testing.T) {
	r := newTestResolver(false)

	req := httptest.NewRequest("GET", "/api/ws", nil)

	identity, err := r.Resolve(req)
	require.NoError(t, err)
	assert.True(t, identity.Guest)
	assert.Equal(t, session.TierFree, identity.Tier)
	assert.Contains(t, identity.UserID, "guest-")
}

func TestResolve_DevBypass(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/ws?dev=1", nil)

	identity, err := newTestResolver(true).Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, session.TierPremium, identity.Tier)

	// With the bypass disabled the flag is ignored and the request falls
	// back to guest resolution.
	identity, err = newTestResolver(false).Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, session.TierFree, identity.Tier)
}
