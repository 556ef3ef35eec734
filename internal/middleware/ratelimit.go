package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is an in-memory sliding-window rate limiter. Windows are tracked
// per key; keys that go quiet are evicted by a background sweep.
type Limiter struct {
	mu      sync.Mutex
	seen    map[string][]time.Time
	window  time.Duration
	maxHits int
}

func NewLimiter(window time.Duration, maxHits int) *Limiter {
	l := &Limiter{
		seen:    make(map[string][]time.Time),
		window:  window,
		maxHits: maxHits,
	}
	go l.sweep()
	return l
}

// Allow records a hit for key and reports whether it stays within the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	kept := l.seen[key][:0]
	for _, t := range l.seen[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.maxHits {
		l.seen[key] = kept
		return false
	}
	l.seen[key] = append(kept, time.Now())
	return true
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-2 * l.window)
		for key, hits := range l.seen {
			stale := true
			for _, t := range hits {
				if t.After(cutoff) {
					stale = false
					break
				}
			}
			if stale {
				delete(l.seen, key)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit rejects requests over the limit with a JSON 429. The key function
// decides the bucketing; see ClientIPKey.
func RateLimit(limiter *Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKey buckets by originating client IP, trusting the first
// X-Forwarded-For hop when a proxy added one.
func ClientIPKey(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// ClientIP resolves the originating client address of a request.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
