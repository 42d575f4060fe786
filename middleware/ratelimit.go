package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter decides whether another hit on key is allowed. When it is not,
// retry is how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retry time.Duration)
}

// RateLimit applies l per client IP under bucket.
func RateLimit(bucket string, l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := l.Allow(c.Request.Context(), bucket+":"+c.ClientIP())
		if !ok {
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Too many requests, try again in %d seconds", secs),
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}

// Counter is a fixed-window hit counter, e.g. services.Cache.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// WindowLimiter allows limit hits per window, counted in a shared store so
// the limit holds across instances. When the store is unreachable it defers
// to fallback.
type WindowLimiter struct {
	counter  Counter
	limit    int64
	window   time.Duration
	fallback Limiter
}

func NewWindowLimiter(counter Counter, limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		counter:  counter,
		limit:    int64(limit),
		window:   window,
		fallback: NewLocalLimiter(limit, window),
	}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	n, left, err := l.counter.IncrWindow(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		slog.Debug("rate limit counter unavailable, using local limiter", "err", err)
		return l.fallback.Allow(ctx, key)
	}
	if n > l.limit {
		return false, left
	}
	return true, 0
}

// LocalLimiter is an in-process token bucket per key.
type LocalLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter allows limit hits per window with a burst of limit.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit < 1 {
		limit = 1
	}
	return &LocalLimiter{
		visitors:  make(map[string]*visitor),
		every:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		idle:      window * 2,
		lastSweep: time.Now(),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	l.sweep(now)
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// sweep drops idle visitors; the caller holds mu.
func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}
