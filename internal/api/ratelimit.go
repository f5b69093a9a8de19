package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/calcrag/calcrag/internal/log"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterStaleAfter      = 10 * time.Minute
)

// rateLimiter applies a per-IP token bucket. Generation endpoints are
// expensive, so unauthenticated callers get a bounded request rate.
// Stale entries are swept inline during allow calls.
type rateLimiter struct {
	mu        sync.Mutex
	perIP     map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter creates a limiter refilling r tokens per second with the
// given burst capacity per IP.
func newRateLimiter(r float64, burst int) *rateLimiter {
	return &rateLimiter{
		perIP:     make(map[string]*ipBucket),
		limit:     rate.Limit(r),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	if now.Sub(rl.lastSweep) > limiterCleanupInterval {
		for k, b := range rl.perIP {
			if now.Sub(b.lastSeen) > limiterStaleAfter {
				delete(rl.perIP, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.perIP[ip]
	if !ok {
		limiter := rate.NewLimiter(rl.limit, rl.burst)
		rl.perIP[ip] = &ipBucket{limiter: limiter, lastSeen: now}
		limiter.Allow()
		return true
	}

	b.lastSeen = now
	return b.limiter.Allow()
}

func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !rl.allow(ip) {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
