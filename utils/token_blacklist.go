package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenBlacklist records revoked tokens until their natural expiry.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time)
	IsRevoked(ctx context.Context, token string) bool
}

// NewTokenBlacklist prefers Redis when the shared client is up and falls back to process memory.
func NewTokenBlacklist() TokenBlacklist {
	return &tokenBlacklist{entries: map[string]time.Time{}}
}

type tokenBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "jwt:blacklist:" + hex.EncodeToString(sum[:])
}

func (b *tokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rc.Set(ctx, blacklistKey(token), "1", ttl).Err()
		if err == nil {
			return
		}
		L().Warn("redis blacklist write failed, using memory", zap.Error(err))
	}
	b.mu.Lock()
	b.entries[blacklistKey(token)] = expiresAt
	b.mu.Unlock()
}

func (b *tokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	key := blacklistKey(token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, key).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	b.mu.RLock()
	exp, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return false
	}
	return true
}
