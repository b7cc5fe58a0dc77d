package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, 0)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("k") {
		t.Fatalf("third request should be blocked")
	}
}

func TestIPRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewIPRateLimiter(1, 0)
	if !l.Allow("a") {
		t.Fatalf("first request for key a should pass")
	}
	if l.Allow("a") {
		t.Fatalf("second request for key a should be blocked")
	}
	if !l.Allow("b") {
		t.Fatalf("key b has its own bucket")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewIPRateLimiter(1, 0)
	next := RateLimitMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/modules", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	next.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}
