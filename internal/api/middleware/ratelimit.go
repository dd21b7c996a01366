package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter caps requests per client IP over a fixed window. It fronts
// the login route, the only endpoint reachable without a token.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string]*clientWindow
	limit  int
	window time.Duration
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter allows up to limit requests per window per client IP and
// starts a background sweep that drops expired windows.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[string]*clientWindow),
		limit:  limit,
		window: window,
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.sweep()
		}
	}()
	return rl
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for ip, cw := range rl.seen {
		if now.After(cw.resetAt) {
			delete(rl.seen, ip)
		}
	}
}

// Handler enforces the limit. RemoteAddr is trusted as the client key;
// chi's RealIP middleware rewrites it before requests reach here.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.mu.Lock()
		now := time.Now()
		cw, ok := rl.seen[r.RemoteAddr]
		if !ok || now.After(cw.resetAt) {
			cw = &clientWindow{resetAt: now.Add(rl.window)}
			rl.seen[r.RemoteAddr] = cw
		}
		cw.count++
		allowed := cw.count <= rl.limit
		rl.mu.Unlock()

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests, try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
