package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth attempt should be blocked")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("limits must be tracked per IP")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first attempt should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second immediate attempt should be blocked")
	}
	time.Sleep(40 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("attempt after window expiry should pass")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
}

func TestExtractIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{"remote addr only", "10.0.0.1:1234", "", "", "10.0.0.1"},
		{"x-forwarded-for wins", "10.0.0.1:1234", "203.0.113.5", "", "203.0.113.5"},
		{"first of forwarded chain", "10.0.0.1:1234", "203.0.113.5, 10.0.0.2", "", "203.0.113.5"},
		{"x-real-ip fallback", "10.0.0.1:1234", "", "203.0.113.9", "203.0.113.9"},
		{"unparseable remote addr", "garbage", "", "", "garbage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractIP(tc.remoteAddr, tc.xff, tc.xRealIP); got != tc.want {
				t.Errorf("ExtractIP() = %q, want %q", got, tc.want)
			}
		})
	}
}
