package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitUploadPrefix is the Redis key prefix for per-user upload windows.
	rateLimitUploadPrefix = "ratelimit:upload:"
	// rateLimitIPPrefix is the Redis key prefix for IP rate limits.
	rateLimitIPPrefix = "ratelimit:ip:"
	// rateLimitIPTTL is the TTL for IP rate limit keys.
	rateLimitIPTTL = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// fixedWindowScript counts a hit in the current window. The first hit opens
// the window by setting its expiry.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// tokenBucketScript is a Lua script implementing the token bucket algorithm.
// Refill and consumption happen atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- max tokens (bucket capacity)
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckUploadRateLimit records an upload attempt by userID and reports
// whether it fits in the fixed window of `limit` uploads per `window`.
func (c *Cache) CheckUploadRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (*RateLimitResult, error) {
	if limit <= 0 {
		return allowAll(limit, window), nil
	}

	key := rateLimitUploadPrefix + userID

	result, err := fixedWindowScript.Run(ctx, c.client,
		[]string{key},
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		// Fail open on Redis errors - allow the request
		slog.WarnContext(ctx, "upload rate limit check failed", "error", err)
		return allowAll(limit, window), nil
	}

	return fixedWindowResult(result[0], int64(limit), time.Duration(result[1])*time.Millisecond, time.Now()), nil
}

// CheckIPRateLimit checks and updates the token bucket for an IP address.
// IP is hashed to avoid storing raw IP addresses.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	key := rateLimitIPPrefix + hashIP(ip)
	rate := float64(ratePerSecond)

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		rate, burst, time.Now().Unix(), int(rateLimitIPTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		slog.WarnContext(ctx, "ip rate limit check failed", "error", err)
		return &RateLimitResult{
			Allowed:   true,
			Limit:     int64(burst),
			Remaining: int64(burst),
			ResetAt:   time.Now().Add(time.Second),
		}, nil
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Limit:      int64(burst),
		Remaining:  result[2],
		ResetAt:    time.Now().Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

// fixedWindowResult turns a window counter into a RateLimitResult.
func fixedWindowResult(count, limit int64, ttl time.Duration, now time.Time) *RateLimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	res := &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res
}

func allowAll(limit int, window time.Duration) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Limit:     int64(limit),
		Remaining: int64(limit),
		ResetAt:   time.Now().Add(window),
	}
}

// hashIP creates a truncated SHA256 hash of an IP address.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
