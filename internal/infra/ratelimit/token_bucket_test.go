package ratelimit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestBucket(capacity int, rate float64) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	b := NewTokenBucket(&Config{Capacity: capacity, RatePS: rate})
	b.now = clock.Now
	return b, clock
}

func TestTokenBucket_Basic(t *testing.T) {
	ctx := context.Background()
	// 容量5，每秒補充2個token
	b, _ := newTestBucket(5, 2)

	for i := 0; i < 5; i++ {
		require.True(t, b.Allow(ctx, "s1"), "應該允許第 %d 次請求", i+1)
	}
	assert.False(t, b.Allow(ctx, "s1"), "超過容量限制應該被拒絕")

	// key 之間互不影響
	assert.True(t, b.Allow(ctx, "s2"))
}

func TestTokenBucket_Refill(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBucket(2, 1)

	b.Allow(ctx, "s1")
	b.Allow(ctx, "s1")
	require.False(t, b.Allow(ctx, "s1"), "應該沒有可用的token")

	clock.Advance(1100 * time.Millisecond)
	assert.True(t, b.Allow(ctx, "s1"), "應該有1個新的token可用")
	assert.False(t, b.Allow(ctx, "s1"), "不應該有第2個token可用")
}

func TestTokenBucket_Capacity(t *testing.T) {
	ctx := context.Background()
	// 補充速率大於容量
	b, clock := newTestBucket(2, 10)

	b.Allow(ctx, "s1")
	b.Allow(ctx, "s1")
	clock.Advance(time.Minute)

	assert.True(t, b.Allow(ctx, "s1"))
	assert.True(t, b.Allow(ctx, "s1"))
	assert.False(t, b.Allow(ctx, "s1"), "不應超過容量")
}

func TestTokenBucket_PruneIdle(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBucket(1, 1)

	for i := 0; i < pruneThreshold; i++ {
		b.Allow(ctx, strconv.Itoa(i))
	}
	require.Len(t, b.buckets, pruneThreshold)

	clock.Advance(time.Hour)
	b.Allow(ctx, "new")
	assert.Len(t, b.buckets, 1)
}

func TestConfig(t *testing.T) {
	assert.True(t, GetDefaultConfig().Enabled())
	assert.False(t, Config{Capacity: 0, RatePS: 1}.Enabled())
	assert.False(t, Config{Capacity: 1, RatePS: 0}.Enabled())
	assert.Equal(t, 11*time.Second, Config{Capacity: 10, RatePS: 1}.idleTTL())

	assert.True(t, Unlimited{}.Allow(context.Background(), "any"))
}
