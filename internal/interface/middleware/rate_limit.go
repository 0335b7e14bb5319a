package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cozyapp/cozyapp-api/pkg/response"
)

// ipFromCtx prefers the address resolved by RealIP, then Gin's own view.
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func routeOf(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc names the bucket a request is counted in.
type KeyFunc func(c *gin.Context) string

// AllowFunc reports whether a request skips the limit entirely.
type AllowFunc func(c *gin.Context) bool

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + ipFromCtx(c) }
}

// KeyByIPAndPath gives every route its own bucket per client, so the two
// reset-request aliases are counted separately.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string { return "route:" + routeOf(c) + ":ip:" + ipFromCtx(c) }
}

// Limit is one fixed-window budget.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Key    KeyFunc
	Bypass AllowFunc
}

func (l Limit) disabled() bool {
	return l.Max <= 0 || l.Window <= 0 || l.Key == nil
}

// windowScript counts a hit and reports the remaining window in one round trip.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// parseWindow decodes the script reply into the hit count and time left.
func parseWindow(v any) (int, time.Duration) {
	parts, ok := v.([]any)
	if !ok || len(parts) != 2 {
		return 0, 0
	}
	n, _ := parts[0].(int64)
	ms, _ := parts[1].(int64)
	if ms < 0 {
		ms = 0
	}
	return int(n), time.Duration(ms) * time.Millisecond
}

// RateLimit enforces l with Redis counters. A nil client or a disabled limit
// lets everything through, and Redis errors fail open.
func RateLimit(rdb *redis.Client, l Limit) gin.HandlerFunc {
	if rdb == nil || l.disabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (l.Bypass != nil && l.Bypass(c)) {
			c.Next()
			return
		}

		reply, err := windowScript.Run(c.Request.Context(), rdb, []string{"rl:" + l.Name + ":" + l.Key(c)}, l.Window.Milliseconds()).Result()
		if err != nil {
			c.Next()
			return
		}
		count, left := parseWindow(reply)
		resetSec := int((left + time.Second - 1) / time.Second)

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(l.Max-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > l.Max {
			c.Header("Retry-After", strconv.Itoa(resetSec))
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", gin.H{"limit": l.Name})
			return
		}
		c.Next()
	}
}
