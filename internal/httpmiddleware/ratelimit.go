package httpmiddleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/store"
)

// Counter tracks hits per key within a fixed window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter caps each remote caller to max requests per window. Excess
// requests get a uniform 429; nothing is queued.
type RateLimiter struct {
	max     int
	window  time.Duration
	counter Counter
}

// NewRateLimiter creates a limiter over the given counter backend.
func NewRateLimiter(max int, window time.Duration, counter Counter) *RateLimiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RateLimiter{max: max, window: window, counter: counter}
}

// GinMiddleware returns a gin handler enforcing per-IP limits. A counter
// backend failure lets the request through; throttling is best-effort.
func (l *RateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		n, err := l.counter.Hit(c.Request.Context(), "ratelimit:"+ip, l.window)
		if err == nil && n > int64(l.max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests, try again later"})
			return
		}
		c.Next()
	}
}

// MemoryCounter is the in-process backend for single-instance deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count int64
	start time.Time
}

// NewMemoryCounter creates an in-memory fixed-window counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*window), now: time.Now}
}

// Hit increments the key's counter, resetting it when the window rolled over.
func (m *MemoryCounter) Hit(_ context.Context, key string, d time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= d {
		w = &window{start: now}
		m.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RedisCounter shares the window across instances via redis.
type RedisCounter struct {
	r *store.Redis
}

// NewRedisCounter wraps the shared redis client.
func NewRedisCounter(r *store.Redis) *RedisCounter {
	return &RedisCounter{r: r}
}

// Hit delegates to the redis fixed-window counter.
func (c *RedisCounter) Hit(ctx context.Context, key string, d time.Duration) (int64, error) {
	return c.r.Hit(ctx, key, d)
}
