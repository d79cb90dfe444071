package server

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const sessionCookieName = "injectly_session"

type sessionUserKey struct{}

func withSessionUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, sessionUserKey{}, username)
}

func sessionUserFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	username, ok := ctx.Value(sessionUserKey{}).(string)
	return username, ok
}

// requireSession is the authentication gate in front of every management
// handler. Until operator credentials exist, it steers callers to the setup
// flow instead of rejecting them as unauthenticated.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.hasCredentials.Load() {
			writeAPIError(w, http.StatusConflict, "setup required: no operator credentials configured", nil)
			return
		}

		token := sessionTokenFromRequest(r)
		username, ok := s.sessions.Lookup(token, time.Now())
		if !ok {
			s.logger.Warn("unauthorized management request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeAPIError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}

		next(w, r.WithContext(withSessionUser(r.Context(), username)))
	}
}

// sessionTokenFromRequest accepts the browser cookie or, for CLI callers, a
// bearer token.
func sessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v
		}
	}
	parts := strings.Fields(strings.TrimSpace(r.Header.Get("Authorization")))
	if len(parts) != 2 {
		return ""
	}
	// RFC 7235 treats auth-scheme tokens as case-insensitive.
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
