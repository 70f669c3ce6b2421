package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()
	limit := Limit{Requests: 5, Window: time.Minute}

	for i := 0; i < 5; i++ {
		if !rl.Allow("sign-in", "1.2.3.4", limit) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("sign-in", "1.2.3.4", limit) {
		t.Error("6th request should be denied")
	}
}

func TestRateLimiterScopesAreIndependent(t *testing.T) {
	rl := NewRateLimiter()
	limit := Limit{Requests: 2, Window: time.Minute}

	rl.Allow("sign-in", "1.2.3.4", limit)
	rl.Allow("sign-in", "1.2.3.4", limit)
	if rl.Allow("sign-in", "1.2.3.4", limit) {
		t.Fatal("sign-in budget should be spent")
	}

	// The same client's invite budget is untouched.
	if !rl.Allow("invite", "1.2.3.4", limit) {
		t.Error("invite scope shares the sign-in budget")
	}
}

func TestRateLimiterClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter()
	limit := Limit{Requests: 1, Window: time.Minute}

	rl.Allow("sign-up", "1.2.3.4", limit)
	if !rl.Allow("sign-up", "5.6.7.8", limit) {
		t.Error("one client's budget spent another's")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()
	limit := Limit{Requests: 3, Window: 10 * time.Millisecond}

	for i := 0; i < 3; i++ {
		rl.Allow("sign-in", "1.2.3.4", limit)
	}
	if rl.Allow("sign-in", "1.2.3.4", limit) {
		t.Error("should be blocked within window")
	}

	time.Sleep(15 * time.Millisecond)

	if !rl.Allow("sign-in", "1.2.3.4", limit) {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("sign-in", "expired", Limit{Requests: 5, Window: 10 * time.Millisecond})
	time.Sleep(15 * time.Millisecond)
	rl.Allow("sign-in", "active", Limit{Requests: 5, Window: time.Minute})

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.windows["sign-in|expired"]; ok {
		t.Error("expired window should have been cleaned up")
	}
	if _, ok := rl.windows["sign-in|active"]; !ok {
		t.Error("active window should still exist")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, "sign-in", Limit{Requests: 2, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name   string
		cf     string
		xff    string
		remote string
		want   string
	}{
		{"cloudflare header wins", "203.0.113.9", "198.51.100.1", "10.0.0.1:1234", "203.0.113.9"},
		{"first forwarded hop", "", "198.51.100.1, 10.0.0.2", "10.0.0.1:1234", "198.51.100.1"},
		{"remote addr fallback", "", "", "10.0.0.1:1234", "10.0.0.1"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		if tt.cf != "" {
			r.Header.Set("CF-Connecting-IP", tt.cf)
		}
		if tt.xff != "" {
			r.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := RealIP(r); got != tt.want {
			t.Errorf("%s: RealIP = %q, want %q", tt.name, got, tt.want)
		}
	}
}
