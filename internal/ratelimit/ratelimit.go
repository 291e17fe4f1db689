package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
-- KEYS[1] = window counter key
-- ARGV[1] = window ttl in milliseconds
--
-- Returns the request count within the current window.
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// Limiter enforces per-client-IP fixed-window rate limits backed by redis.
// Without a backend it is a pass-through, so local setups work unchanged.
type Limiter struct {
	rdb *redis.Client
	log *slog.Logger

	// count is injectable for tests.
	count func(ctx context.Context, key string, window time.Duration) (int64, error)
}

func New(rdb *redis.Client, log *slog.Logger) *Limiter {
	if log == nil {
		log = slog.Default()
	}
	l := &Limiter{rdb: rdb, log: log}
	if rdb != nil {
		l.count = l.redisCount
	}
	return l
}

func (l *Limiter) redisCount(ctx context.Context, key string, window time.Duration) (int64, error) {
	return fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64()
}

// PerMinute limits a named route to limit requests per client IP per minute.
func (l *Limiter) PerMinute(name string, limit int) gin.HandlerFunc {
	const window = time.Minute
	return func(c *gin.Context) {
		if l.count == nil {
			c.Next()
			return
		}
		key := fmt.Sprintf("ratelimit:%s:%s:%d", name, c.ClientIP(), time.Now().Unix()/60)
		n, err := l.count(c.Request.Context(), key, window)
		if err != nil {
			// Fail open: limiting is protective, not correctness-critical.
			l.log.Warn("rate limiter backend failed", "route", name, "err", err)
			c.Next()
			return
		}
		if n > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
