package ratelimit

import (
	"context"
	"math"
	"time"
)

// ILimiter 以 key 區分的限流器
type ILimiter interface {
	Allow(ctx context.Context, key string) bool
}

type Config struct {
	Capacity int
	RatePS   float64 // tokens/秒
}

func GetDefaultConfig() Config {
	return Config{
		Capacity: 10,
		RatePS:   0.2,
	}
}

// Enabled Capacity <= 0 代表不限流
func (c Config) Enabled() bool {
	return c.Capacity > 0 && c.RatePS > 0
}

// idleTTL bucket 從空到滿所需時間，超過後狀態等同新 bucket，可以丟棄
func (c Config) idleTTL() time.Duration {
	seconds := math.Ceil(float64(c.Capacity)/c.RatePS) + 1
	return time.Duration(seconds) * time.Second
}

// Unlimited 不限流
type Unlimited struct{}

var _ ILimiter = Unlimited{}

func (Unlimited) Allow(context.Context, string) bool {
	return true
}
