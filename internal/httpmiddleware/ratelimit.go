package httpmiddleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed per-IP request budget per minute. With a
// redis client the window is shared across instances; without one it
// falls back to an in-process map.
type RateLimiter struct {
	perMinute int
	rdb       *redis.Client

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a limiter; rdb may be nil.
func NewRateLimiter(perMinute int, rdb *redis.Client) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		perMinute: perMinute,
		rdb:       rdb,
		windows:   make(map[string]*window),
	}
}

// GinMiddleware returns a gin handler enforcing the per-IP limit.
func (l *RateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(c, ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(c *gin.Context, ip string) bool {
	if l.rdb != nil {
		if ok, err := l.allowRedis(c, ip); err == nil {
			return ok
		}
		// redis unavailable: fall through to the local window
	}
	return l.allowLocal(ip)
}

func (l *RateLimiter) allowRedis(c *gin.Context, ip string) (bool, error) {
	key := "ratelimit:" + ip + ":" + strconv.FormatInt(time.Now().Unix()/60, 10)
	ctx := c.Request.Context()
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		l.rdb.Expire(ctx, key, time.Minute)
	}
	return count <= int64(l.perMinute), nil
}

func (l *RateLimiter) allowLocal(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	w, ok := l.windows[ip]
	if !ok || now.After(w.resetAt) {
		l.windows[ip] = &window{count: 1, resetAt: now.Add(time.Minute)}
		return true
	}
	w.count++
	return w.count <= l.perMinute
}
