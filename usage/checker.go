// Package usage hosts the tier usage-limit collaborator consumed by the
// session protocol. Billing itself is an external concern; the protocol
// only asks whether an identity may start more work.
package usage

import (
	"context"
	"errors"
	"sync"

	"speechbridge/session"
)

// ErrLimitExceeded is returned when an identity has exhausted its tier allowance.
var ErrLimitExceeded = errors.New("usage limit exceeded for tier")

// Checker decides whether an identity may consume more segments.
type Checker interface {
	Allow(ctx context.Context, identity string, tier session.Tier) error
}

// Unlimited is the allowance value for tiers without a cap.
const Unlimited = -1

// DefaultAllowances maps tiers to segment allowances per accounting window.
func DefaultAllowances() map[session.Tier]int {
	return map[session.Tier]int{
		session.TierFree:       100,
		session.TierBasic:      1000,
		session.TierPremium:    Unlimited,
		session.TierEnterprise: Unlimited,
	}
}

// TierChecker is an in-memory Checker counting consumption per identity.
type TierChecker struct {
	allowances map[session.Tier]int

	mu     sync.Mutex
	counts map[string]int
}

// NewTierChecker creates a checker with the given per-tier allowances.
// A nil map uses DefaultAllowances.
func NewTierChecker(allowances map[session.Tier]int) *TierChecker {
	if allowances == nil {
		allowances = DefaultAllowances()
	}
	return &TierChecker{
		allowances: allowances,
		counts:     make(map[string]int),
	}
}

// Allow consumes one unit for identity, failing once the tier allowance
// is exhausted.
func (c *TierChecker) Allow(ctx context.Context, identity string, tier session.Tier) error {
	limit, ok := c.allowances[tier]
	if !ok {
		limit = 0
	}
	if limit == Unlimited {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[identity] >= limit {
		return ErrLimitExceeded
	}
	c.counts[identity]++
	return nil
}

// Reset clears the consumption counter for identity.
func (c *TierChecker) Reset(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, identity)
}
