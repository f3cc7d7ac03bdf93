package utils

import (
	"context"
	"sync"
	"time"
)

// StateStore holds single-use OAuth state tokens.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
}

// NewStateStore creates a store whose tokens live for ttl (10 minutes when zero).
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{entries: map[string]time.Time{}, ttl: ttl}
}

// Save stores a state token.
func (s *StateStore) Save(ctx context.Context, state string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if rc.Set(ctx, "oauth:state:"+state, "1", s.ttl).Err() == nil {
			return
		}
	}
	s.mu.Lock()
	s.entries[state] = time.Now().Add(s.ttl)
	s.mu.Unlock()
}

// Consume validates and removes a state token.
func (s *StateStore) Consume(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "oauth:state:"+state).Result(); err == nil && v != "" {
			return true
		}
	}
	s.mu.Lock()
	exp, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()
	return ok && time.Now().Before(exp)
}
