package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pauljasperdev/gemhog/internal/pkg/httputil"
	"github.com/pauljasperdev/gemhog/internal/pkg/logger"
)

// Per-IP budget for the public subscription endpoints. Generous enough for a
// shared office NAT, tight enough to blunt enumeration and email-bombing.
const (
	rateLimitWindow   = time.Minute
	rateLimitRequests = 30
)

// Lua script for an atomic fixed-window counter. Checking with GET and then
// incrementing separately races under concurrent requests from the same IP,
// so the check and increment happen in one script.
const fixedWindowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current >= limit then
    return {0, current}
end

local new = redis.call("INCR", key)
if new == 1 then
    redis.call("EXPIRE", key, ttl)
end
return {1, new}
`

// RateLimiter applies a per-IP fixed-window limit backed by Redis.
// With a nil client it is disabled and the middleware passes through.
type RateLimiter struct {
	redis  *redis.Client
	script *redis.Script
	window time.Duration
	limit  int
}

// NewRateLimiter creates a rate limiter. client may be nil to disable limiting.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		script: redis.NewScript(fixedWindowLuaScript),
		window: rateLimitWindow,
		limit:  rateLimitRequests,
	}
}

// Allow reports whether one more request from ip fits in the current window.
// Redis being unreachable fails open: blocking signups because a cache is
// down is worse than briefly losing the limit.
func (rl *RateLimiter) Allow(r *http.Request, ip string) bool {
	if rl.redis == nil {
		return true
	}

	window := time.Now().Unix() / int64(rl.window.Seconds())
	key := fmt.Sprintf("ratelimit:ip:%s:%d", ip, window)

	result, err := rl.script.Run(r.Context(), rl.redis,
		[]string{key},
		rl.limit,
		int(rl.window.Seconds())+1,
	).Result()
	if err != nil {
		logger.Warn("rate limit check failed, allowing request", "error", err.Error())
		return true
	}

	vals, ok := result.([]interface{})
	if !ok || len(vals) < 1 {
		return true
	}
	allowed, _ := vals[0].(int64)
	return allowed == 1
}

// Middleware rejects requests over the per-IP limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !rl.Allow(r, ip) {
			logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			httputil.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request's remote IP. chi's RealIP middleware has
// already rewritten RemoteAddr from X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
