package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newSessionToken builds a session token from a ULID (sortable, shows up
// nicely in logs) plus 16 random bytes so the timestamp prefix alone never
// identifies a session.
func newSessionToken(now time.Time) (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(now.UTC()), entropy)
	entropyMu.Unlock()
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("generate session token: insufficient entropy")
		}
		return "", fmt.Errorf("generate session token: %w", err)
	}

	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return id.String() + hex.EncodeToString(secret), nil
}

type session struct {
	username  string
	expiresAt time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &sessionStore{
		ttl:      ttl,
		sessions: map[string]session{},
	}
}

func (st *sessionStore) Create(username string, now time.Time) (string, error) {
	token, err := newSessionToken(now)
	if err != nil {
		return "", err
	}
	st.mu.Lock()
	st.sessions[token] = session{username: username, expiresAt: now.Add(st.ttl)}
	st.mu.Unlock()
	return token, nil
}

// Lookup returns the logged-in username for a token. Expired sessions are
// dropped on access.
func (st *sessionStore) Lookup(token string, now time.Time) (string, bool) {
	if token == "" {
		return "", false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[token]
	if !ok {
		return "", false
	}
	if now.After(sess.expiresAt) {
		delete(st.sessions, token)
		return "", false
	}
	return sess.username, true
}

func (st *sessionStore) Delete(token string) {
	st.mu.Lock()
	delete(st.sessions, token)
	st.mu.Unlock()
}

// Clear drops every session, used after a credential change.
func (st *sessionStore) Clear() {
	st.mu.Lock()
	st.sessions = map[string]session{}
	st.mu.Unlock()
}
