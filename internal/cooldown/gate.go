package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists the time of the most recent send per recipient key.
type Store interface {
	Get(ctx context.Context, key string) (time.Time, bool, error)
	Set(ctx context.Context, key string, at time.Time, ttl time.Duration) error
}

// Gate keeps the same recipient from being contacted twice inside the
// protection window, across all campaigns.
type Gate struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

func NewGate(store Store, window time.Duration) *Gate {
	return &Gate{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

func (g *Gate) Window() time.Duration {
	return g.window
}

func (g *Gate) CanSend(ctx context.Context, key string) (bool, error) {
	if g.window <= 0 {
		return true, nil
	}

	last, found, err := g.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read cooldown for %s: %w", key, err)
	}
	if !found {
		return true, nil
	}

	return g.now().Sub(last) >= g.window, nil
}

func (g *Gate) RecordSend(ctx context.Context, key string, at time.Time) error {
	if err := g.store.Set(ctx, key, at, g.window); err != nil {
		return fmt.Errorf("failed to record cooldown for %s: %w", key, err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.entries[key]
	return at, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, at time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[key]; ok && prev.After(at) {
		return nil
	}
	s.entries[key] = at
	return nil
}
