// Package history persists completed translation exchanges. Durable
// storage is an external collaborator; the protocol consumes only this
// interface and ships with an in-memory implementation.
package history

import (
	"context"
	"sync"
	"time"

	"speechbridge/realtime"
)

// Exchange is one finished session's worth of translated sentences.
type Exchange struct {
	// SessionID identifies the originating session.
	SessionID string `json:"sessionId"`
	// Identity is the owning user id.
	Identity string `json:"identity"`
	// Sentences are the finalized sentences in completion order.
	Sentences []realtime.CompletedSentence `json:"sentences"`
	// StartedAt is when the session was created.
	StartedAt time.Time `json:"startedAt"`
	// EndedAt is when the session finished.
	EndedAt time.Time `json:"endedAt"`
}

// Store persists and queries exchanges.
type Store interface {
	SaveExchange(ctx context.Context, exchange Exchange) error
	Recent(ctx context.Context, identity string, limit int) ([]Exchange, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu        sync.Mutex
	exchanges map[string][]Exchange
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{exchanges: make(map[string][]Exchange)}
}

// SaveExchange appends an exchange for its identity.
func (s *MemoryStore) SaveExchange(ctx context.Context, exchange Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges[exchange.Identity] = append(s.exchanges[exchange.Identity], exchange)
	return nil
}

// Recent returns up to limit exchanges for identity, newest first.
func (s *MemoryStore) Recent(ctx context.Context, identity string, limit int) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.exchanges[identity]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]Exchange, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
