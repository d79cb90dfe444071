package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	dbpkg "github.com/injectly/injectly/internal/db"
)

type credentialsRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	if s.hasCredentials.Load() {
		writeAPIError(w, http.StatusConflict, "credentials already configured", nil)
		return
	}

	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeInternalAPIError(w, r, "hash credentials failed", err)
		return
	}

	q := dbpkg.NewQueries(s.db)
	if _, err := q.InsertUser(r.Context(), req.Username, string(hash)); err != nil {
		s.writeInternalAPIError(w, r, "save credentials failed", err)
		return
	}
	s.hasCredentials.Store(true)
	s.logger.Info("operator credentials configured", "username", req.Username)

	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	if !s.hasCredentials.Load() {
		writeAPIError(w, http.StatusConflict, "setup required: no operator credentials configured", nil)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body", []string{err.Error()})
		return
	}
	username := strings.TrimSpace(req.Username)

	q := dbpkg.NewQueries(s.db)
	user, err := q.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeAPIError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		s.writeInternalAPIError(w, r, "lookup user failed", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("login rejected", "username", username, "remote_addr", r.RemoteAddr)
		writeAPIError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	token, err := s.sessions.Create(user.Username, time.Now())
	if err != nil {
		s.writeInternalAPIError(w, r, "create session failed", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("operator logged in", "username", user.Username)

	writeJSON(w, http.StatusOK, loginResponse{Username: user.Username, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	s.sessions.Delete(sessionTokenFromRequest(r))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleAccount updates the operator's credentials and invalidates every
// session, forcing a fresh login.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	currentUser, _ := sessionUserFromContext(r.Context())

	q := dbpkg.NewQueries(s.db)
	user, err := q.GetUserByUsername(r.Context(), currentUser)
	if err != nil {
		s.writeInternalAPIError(w, r, "lookup current user failed", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeInternalAPIError(w, r, "hash credentials failed", err)
		return
	}
	updated, err := q.UpdateUserCredentials(r.Context(), user.ID, req.Username, string(hash))
	if err != nil {
		s.writeInternalAPIError(w, r, "update credentials failed", err)
		return
	}
	if !updated {
		writeAPIError(w, http.StatusNotFound, "operator account not found", nil)
		return
	}

	s.sessions.Clear()
	s.logger.Info("operator credentials updated", "username", req.Username)
	writeJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body", []string{err.Error()})
		return req, false
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.ConfirmPassword == "" {
		writeAPIError(w, http.StatusBadRequest, "username, password and confirmPassword are required", nil)
		return req, false
	}
	if req.Password != req.ConfirmPassword {
		writeAPIError(w, http.StatusBadRequest, "passwords do not match", nil)
		return req, false
	}
	return req, true
}
