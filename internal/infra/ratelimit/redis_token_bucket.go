package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// 時間以毫秒傳入，避免奈秒超過 Lua number 精度
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	-- 取得或初始化 bucket 狀態
	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local currentTokens = tonumber(bucket[1])
	local lastRefill = tonumber(bucket[2])
	if currentTokens == nil or lastRefill == nil then
		currentTokens = capacity
		lastRefill = now
	end

	-- 計算需要補充的 tokens
	local elapsedSeconds = math.max(0, now - lastRefill) / 1000
	currentTokens = math.min(capacity, currentTokens + elapsedSeconds * rate)

	local allowed = 0
	if currentTokens >= 1 then
		currentTokens = currentTokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'tokens', tostring(currentTokens), 'last_refill', tostring(now))
	redis.call('PEXPIRE', key, ttl)
	return allowed
`)

/*
RedisTokenBucket 多個實例共用限流狀態
redis 錯誤時放行，限流不應該讓聊天整個停擺
*/
type RedisTokenBucket struct {
	Config
	client redis.Scripter
	prefix string
	logger *zerolog.Logger
	now    func() time.Time
}

var _ ILimiter = (*RedisTokenBucket)(nil)

func NewRedisTokenBucket(client redis.Scripter, prefix string, config *Config, logger *zerolog.Logger) *RedisTokenBucket {
	if client == nil {
		panic("redis client is nil")
	}
	if logger == nil {
		panic("logger is nil")
	}
	rb := &RedisTokenBucket{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
	if config != nil {
		rb.Config = *config
	} else {
		rb.Config = GetDefaultConfig()
	}
	return rb
}

func (r *RedisTokenBucket) setPrefixKey(key string) string {
	if r.prefix == "" {
		return fmt.Sprintf("ratelimit:%s", key)
	}
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, key)
}

func (r *RedisTokenBucket) Allow(ctx context.Context, key string) bool {
	result, err := tokenBucketScript.Run(
		ctx,
		r.client,
		[]string{r.setPrefixKey(key)},
		r.Capacity,
		r.RatePS,
		r.now().UnixMilli(),
		r.idleTTL().Milliseconds(),
	).Int64()
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("rate limit script failed, request allowed")
		return true
	}
	return result == 1
}
