package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limit is the request budget for one surface over a fixed window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Budgets for the abuse-prone surfaces. Sign-up is tighter than sign-in
// because each attempt can create rows; invites are bounded per hour since a
// burst of them is either a mistake or a spam run.
var (
	LimitSignIn = Limit{Requests: 10, Window: time.Minute}
	LimitSignUp = Limit{Requests: 5, Window: time.Minute}
	LimitInvite = Limit{Requests: 20, Window: time.Hour}
)

// RealIP extracts the client's IP, preferring Cloudflare's CF-Connecting-IP,
// then the first hop of X-Forwarded-For, then RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per (scope, client) pair in fixed windows. One
// limiter serves every surface; scopes keep a client's sign-in attempts from
// consuming its invite budget.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*window)}
}

// Allow records one request against the scope's budget for the client key
// and reports whether it fits the limit.
func (rl *RateLimiter) Allow(scope, key string, limit Limit) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	id := scope + "|" + key
	w, ok := rl.windows[id]
	if !ok || now.After(w.resetAt) {
		rl.windows[id] = &window{count: 1, resetAt: now.Add(limit.Window)}
		return true
	}
	w.count++
	return w.count <= limit.Requests
}

// Cleanup drops windows whose reset time has passed.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for id, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, id)
		}
	}
}

// RateLimit guards one surface, keyed by client IP. Over-budget requests get
// a plain 429.
func RateLimit(limiter *RateLimiter, scope string, limit Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(scope, RealIP(r), limit) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
