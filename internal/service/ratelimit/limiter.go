package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL = 10 * time.Minute
	defaultMaxKeys = 10000
)

type bucket struct {
	lim  *rate.Limiter
	seen atomic.Int64 // unix nanos of the last use
}

// Limiter hands out one token bucket per key (client IP, API key, ...).
// Buckets unused for the idle TTL are dropped, and the key count is capped
// by evicting the least recently used bucket.
type Limiter struct {
	mu        sync.RWMutex
	buckets   map[string]*bucket
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	maxKeys   int
	now       func() time.Time
	lastSweep time.Time
}

type Option func(*Limiter)

func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

func WithMaxKeys(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(rps float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		maxKeys: defaultMaxKeys,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now()
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		b.seen.Store(now.UnixNano())
		return b.lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		b.seen.Store(now.UnixNano())
		return b.lim
	}
	if now.Sub(l.lastSweep) >= l.idleTTL || len(l.buckets) >= l.maxKeys {
		l.sweep(now)
	}
	if len(l.buckets) >= l.maxKeys {
		l.evictOldest()
	}
	b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
	b.seen.Store(now.UnixNano())
	l.buckets[key] = b
	return b.lim
}

// sweep drops idle buckets. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.idleTTL).UnixNano()
	for k, b := range l.buckets {
		if b.seen.Load() <= cutoff {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// evictOldest drops the least recently used bucket. Callers hold mu.
func (l *Limiter) evictOldest() {
	var (
		oldestKey string
		oldest    int64
		found     bool
	)
	for k, b := range l.buckets {
		if seen := b.seen.Load(); !found || seen < oldest {
			oldestKey, oldest, found = k, seen, true
		}
	}
	if found {
		delete(l.buckets, oldestKey)
	}
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Middleware rejects requests over the per-client budget with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
