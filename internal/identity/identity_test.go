package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockVerifier struct {
	verifyFn func(ctx context.Context, token string) (*User, error)
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*User, error) {
	return m.verifyFn(ctx, token)
}

func TestMiddlewareResolvesUser(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(_ context.Context, token string) (*User, error) {
			if token != "tok-123" {
				t.Fatalf("unexpected token %q", token)
			}
			return &User{ID: 42, Admin: true}, nil
		},
	}

	var seen User
	next := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r.Context())
		if !ok {
			t.Fatalf("user missing from context")
		}
		seen = u
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen.ID != 42 || !seen.Admin {
		t.Fatalf("unexpected resolved user %+v", seen)
	}
}

func TestMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(context.Context, string) (*User, error) {
			return nil, ErrUnauthorized
		},
	}
	next := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w = httptest.NewRecorder()
	next.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rejected token, got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	next := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithUser(req.Context(), User{ID: 1, Admin: false}))
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithUser(req.Context(), User{ID: 1, Admin: true}))
	w = httptest.NewRecorder()
	next.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	next.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/introspect" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"admin":true}`))
		case "Bearer bad":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL)

	user, err := v.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != 7 || !user.Admin {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := v.Verify(context.Background(), "boom"); err == nil || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected transport-level error, got %v", err)
	}
}
