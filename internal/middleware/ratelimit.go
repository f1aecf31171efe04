package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RealIP extracts the client address for rate-limit keying: X-Real-IP when a
// reverse proxy sets it, then the first hop of X-Forwarded-For, then the
// connection's remote address.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// counter tracks requests for one key within a fixed window.
type counter struct {
	n       int
	resetAt time.Time
}

// RateLimiter is an in-memory fixed-window limiter, keyed by caller-chosen
// strings (client IPs here). State lives for the process; restarts reset it.
type RateLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		counters: make(map[string]*counter),
	}
}

// Allow reports whether the key is still under limit for the window,
// counting this call.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, ok := rl.counters[key]
	if !ok || now.After(c.resetAt) {
		rl.counters[key] = &counter{n: 1, resetAt: now.Add(window)}
		return true
	}
	c.n++
	return c.n <= limit
}

// Cleanup drops counters whose window has passed. Called periodically from
// the server's maintenance loop.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, c := range rl.counters {
		if now.After(c.resetAt) {
			delete(rl.counters, key)
		}
	}
}

// RateLimit wraps a handler with per-key request limiting, answering JSON
// 429 once a key exhausts its window.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, window) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
