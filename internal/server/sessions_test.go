package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSessionTokenUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := newSessionToken(now)
		if err != nil {
			t.Fatalf("newSessionToken() error = %v", err)
		}
		if len(token) != 26+32 {
			t.Fatalf("unexpected token length %d: %q", len(token), token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := newSessionStore(time.Minute)
	now := time.Now()

	token, err := store.Create("admin", now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	username, ok := store.Lookup(token, now.Add(30*time.Second))
	if !ok || username != "admin" {
		t.Fatalf("Lookup() = (%q, %v)", username, ok)
	}

	if _, ok := store.Lookup(token, now.Add(2*time.Minute)); ok {
		t.Fatalf("expired session must not resolve")
	}
	// The expired entry is dropped on access.
	if _, ok := store.Lookup(token, now); ok {
		t.Fatalf("expired session must stay dropped")
	}
}

func TestSessionStoreDeleteAndClear(t *testing.T) {
	store := newSessionStore(time.Minute)
	now := time.Now()

	t1, _ := store.Create("admin", now)
	t2, _ := store.Create("admin", now)

	store.Delete(t1)
	if _, ok := store.Lookup(t1, now); ok {
		t.Fatalf("deleted session must not resolve")
	}
	if _, ok := store.Lookup(t2, now); !ok {
		t.Fatalf("unrelated session must survive delete")
	}

	store.Clear()
	if _, ok := store.Lookup(t2, now); ok {
		t.Fatalf("cleared session must not resolve")
	}
}

func TestSessionTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scripts", nil)
	if got := sessionTokenFromRequest(req); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scripts", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	if got := sessionTokenFromRequest(req); got != "abc123" {
		t.Fatalf("bearer token not extracted: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scripts", nil)
	req.Header.Set("Authorization", "bearer lower-scheme")
	if got := sessionTokenFromRequest(req); got != "lower-scheme" {
		t.Fatalf("scheme must be case-insensitive: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scripts", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	if got := sessionTokenFromRequest(req); got != "" {
		t.Fatalf("non-bearer scheme must be ignored: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scripts", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})
	if got := sessionTokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("cookie token not extracted: %q", got)
	}

	// The cookie wins over the header when both are present.
	req.Header.Set("Authorization", "Bearer header-token")
	if got := sessionTokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("cookie should take precedence: %q", got)
	}
}
