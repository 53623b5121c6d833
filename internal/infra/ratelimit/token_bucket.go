package ratelimit

import (
	"context"
	"sync"
	"time"
)

const pruneThreshold = 1024

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

/*
TokenBucket 單機版，每個 key 一個 bucket
補充在 Allow 時依經過時間計算，不需要背景 goroutine
*/
type TokenBucket struct {
	Config
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

var _ ILimiter = (*TokenBucket)(nil)

func NewTokenBucket(config *Config) *TokenBucket {
	t := &TokenBucket{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	if config != nil {
		t.Config = *config
	} else {
		t.Config = GetDefaultConfig()
	}
	return t
}

func (t *TokenBucket) Allow(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		if len(t.buckets) >= pruneThreshold {
			t.prune(now)
		}
		b = &bucket{tokens: float64(t.Capacity), lastRefill: now}
		t.buckets[key] = b
	}

	b.tokens = t.countNewTokens(b, now)
	b.lastRefill = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (t *TokenBucket) countNewTokens(b *bucket, now time.Time) float64 {
	elapsed := now.Sub(b.lastRefill)
	newTokens := b.tokens + elapsed.Seconds()*t.RatePS
	if newTokens > float64(t.Capacity) {
		newTokens = float64(t.Capacity)
	}
	return newTokens
}

// 需持有 t.mu
func (t *TokenBucket) prune(now time.Time) {
	ttl := t.idleTTL()
	for key, b := range t.buckets {
		if now.Sub(b.lastRefill) > ttl {
			delete(t.buckets, key)
		}
	}
}
