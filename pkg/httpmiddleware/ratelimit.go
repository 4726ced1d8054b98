package httpmiddleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window and key.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc extracts the rate limit key. Defaults to ClientKey.
	KeyFunc func(*http.Request) string
}

// ClientKey keys requests by API key when one is presented and by client IP
// otherwise. The raw key is hashed so it never sits in limiter memory.
func ClientKey(header string) func(*http.Request) string {
	return func(r *http.Request) string {
		if v := r.Header.Get(header); v != "" {
			sum := sha256.Sum256([]byte(v))
			return "key:" + hex.EncodeToString(sum[:8])
		}
		return "ip:" + clientIP(r)
	}
}

// window holds the counts of the current and previous fixed windows. The
// sliding estimate weights the previous count by its overlap.
type window struct {
	prevCount float64
	currCount float64
	currStart time.Time
}

// Limiter is a per-key sliding window rate limiter.
type Limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter returns a Limiter. Max and Window must be positive.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientKey("api_key")
	}
	return &Limiter{cfg: cfg, windows: make(map[string]*window)}
}

// Allow records a request for key at now. It reports whether the request is
// within the limit, the remaining budget and when the current window ends.
func (l *Limiter) Allow(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{currStart: now.Truncate(l.cfg.Window)}
		l.windows[key] = w
	}

	if elapsed := now.Sub(w.currStart); elapsed >= l.cfg.Window {
		if elapsed >= 2*l.cfg.Window {
			w.prevCount = 0
		} else {
			w.prevCount = w.currCount
		}
		w.currCount = 0
		w.currStart = now.Truncate(l.cfg.Window)
	}

	overlap := 1 - now.Sub(w.currStart).Seconds()/l.cfg.Window.Seconds()
	estimate := w.prevCount*math.Max(overlap, 0) + w.currCount
	resetAt = w.currStart.Add(l.cfg.Window)

	if estimate >= float64(l.cfg.Max) {
		return false, 0, resetAt
	}
	w.currCount++
	return true, max(int(float64(l.cfg.Max)-estimate-1), 0), resetAt
}

// Evict drops keys idle for two windows.
func (l *Limiter) Evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.currStart) >= 2*l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

// Run evicts idle keys periodically until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Evict(now)
		}
	}
}

// Middleware rejects requests over the limit with 429. Every response
// carries X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			allowed, remaining, resetAt := l.Allow(l.cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retry := math.Ceil(max(resetAt.Sub(now), 0).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(retry)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit returns a rate limiting middleware whose idle keys are evicted
// in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg)
	go l.Run(ctx)
	return l.Middleware()
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
