package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	dbpkg "github.com/injectly/injectly/internal/db"
)

type scriptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type siteRef struct {
	ID     int64  `json:"id"`
	Domain string `json:"domain"`
}

type scriptResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Content       string    `json:"content"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
	AssignedSites []siteRef `json:"assignedSites"`
}

type scriptsResponse struct {
	Scripts []scriptResponse `json:"scripts"`
}

type assignRequest struct {
	SiteIDs []int64 `json:"siteIds"`
}

func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListScripts(w, r)
	case http.MethodPost:
		s.handleCreateScript(w, r)
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleScriptItem(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := parseItemPath(r.URL.Path, "scripts")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.handleGetScript(w, r, id)
		case http.MethodPut:
			s.handleUpdateScript(w, r, id)
		case http.MethodDelete:
			s.handleDeleteScript(w, r, id)
		default:
			w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodPut, http.MethodDelete}, ", "))
			writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		}
	case "sites":
		if r.Method != http.MethodPut {
			w.Header().Set("Allow", http.MethodPut)
			writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		s.handleAssignScript(w, r, id)
	case "stats":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		s.handleScriptStats(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	q := dbpkg.NewQueries(s.db)
	rows, err := q.ListScripts(r.Context())
	if err != nil {
		s.writeInternalAPIError(w, r, "list scripts failed", err)
		return
	}

	items := make([]scriptResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := s.scriptWithSites(r, q, row)
		if err != nil {
			s.writeInternalAPIError(w, r, "list assigned sites failed", err, "script_id", row.ID)
			return
		}
		items = append(items, resp)
	}
	writeJSON(w, http.StatusOK, scriptsResponse{Scripts: items})
}

func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScript(w, r)
	if !ok {
		return
	}

	q := dbpkg.NewQueries(s.db)
	id, err := q.InsertScript(r.Context(), req.Name, req.Content)
	if err != nil {
		s.writeInternalAPIError(w, r, "create script failed", err)
		return
	}
	row, err := q.GetScriptByID(r.Context(), id)
	if err != nil {
		s.writeInternalAPIError(w, r, "load created script failed", err, "script_id", id)
		return
	}
	s.logger.Info("script created", "script_id", id, "name", req.Name)
	writeJSON(w, http.StatusCreated, mapScriptRow(row, nil))
}

func (s *Server) handleGetScript(w http.ResponseWriter, r *http.Request, id int64) {
	q := dbpkg.NewQueries(s.db)
	row, err := q.GetScriptByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, fmt.Sprintf("script %d not found", id), nil)
			return
		}
		s.writeInternalAPIError(w, r, "get script failed", err, "script_id", id)
		return
	}
	resp, err := s.scriptWithSites(r, q, row)
	if err != nil {
		s.writeInternalAPIError(w, r, "list assigned sites failed", err, "script_id", id)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateScript(w http.ResponseWriter, r *http.Request, id int64) {
	req, ok := decodeScript(w, r)
	if !ok {
		return
	}

	q := dbpkg.NewQueries(s.db)
	updated, err := q.UpdateScript(r.Context(), id, req.Name, req.Content)
	if err != nil {
		s.writeInternalAPIError(w, r, "update script failed", err, "script_id", id)
		return
	}
	if !updated {
		writeAPIError(w, http.StatusNotFound, fmt.Sprintf("script %d not found", id), nil)
		return
	}
	row, err := q.GetScriptByID(r.Context(), id)
	if err != nil {
		s.writeInternalAPIError(w, r, "load updated script failed", err, "script_id", id)
		return
	}
	resp, err := s.scriptWithSites(r, q, row)
	if err != nil {
		s.writeInternalAPIError(w, r, "list assigned sites failed", err, "script_id", id)
		return
	}
	s.logger.Info("script updated", "script_id", id, "name", req.Name)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteScript(w http.ResponseWriter, r *http.Request, id int64) {
	q := dbpkg.NewQueries(s.db)
	deleted, err := q.DeleteScriptByID(r.Context(), id)
	if err != nil {
		s.writeInternalAPIError(w, r, "delete script failed", err, "script_id", id)
		return
	}
	if !deleted {
		writeAPIError(w, http.StatusNotFound, fmt.Sprintf("script %d not found", id), nil)
		return
	}
	s.logger.Info("script deleted", "script_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignScript replaces the script's full site assignment set. The
// delete+insert pair runs in one transaction so a partial failure can never
// leave the script half-assigned.
func (s *Server) handleAssignScript(w http.ResponseWriter, r *http.Request, id int64) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body", []string{err.Error()})
		return
	}

	q := dbpkg.NewQueries(s.db)
	if _, err := q.GetScriptByID(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, fmt.Sprintf("script %d not found", id), nil)
			return
		}
		s.writeInternalAPIError(w, r, "get script failed", err, "script_id", id)
		return
	}
	for _, siteID := range req.SiteIDs {
		if _, err := q.GetSiteByID(r.Context(), siteID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeAPIError(w, http.StatusBadRequest, fmt.Sprintf("site %d not found", siteID), nil)
				return
			}
			s.writeInternalAPIError(w, r, "lookup site failed", err, "site_id", siteID)
			return
		}
	}

	if err := dbpkg.ReplaceScriptAssignments(r.Context(), s.db, id, req.SiteIDs); err != nil {
		s.writeInternalAPIError(w, r, "replace script assignments failed", err, "script_id", id)
		return
	}

	row, err := q.GetScriptByID(r.Context(), id)
	if err != nil {
		s.writeInternalAPIError(w, r, "load script failed", err, "script_id", id)
		return
	}
	resp, err := s.scriptWithSites(r, q, row)
	if err != nil {
		s.writeInternalAPIError(w, r, "list assigned sites failed", err, "script_id", id)
		return
	}
	s.logger.Info("script assignments replaced", "script_id", id, "site_count", len(req.SiteIDs))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScriptStats(w http.ResponseWriter, r *http.Request, id int64) {
	q := dbpkg.NewQueries(s.db)
	if _, err := q.GetScriptByID(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, fmt.Sprintf("script %d not found", id), nil)
			return
		}
		s.writeInternalAPIError(w, r, "get script failed", err, "script_id", id)
		return
	}

	stats, err := s.callStats.ScriptStats(r.Context(), id, time.Now())
	if err != nil {
		s.writeInternalAPIError(w, r, "aggregate call stats failed", err, "script_id", id)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) scriptWithSites(r *http.Request, q *dbpkg.Queries, row dbpkg.ScriptRow) (scriptResponse, error) {
	sites, err := q.ListSitesForScript(r.Context(), row.ID)
	if err != nil {
		return scriptResponse{}, err
	}
	return mapScriptRow(row, sites), nil
}

func mapScriptRow(row dbpkg.ScriptRow, sites []dbpkg.SiteRow) scriptResponse {
	refs := make([]siteRef, 0, len(sites))
	for _, site := range sites {
		refs = append(refs, siteRef{ID: site.ID, Domain: site.Domain})
	}
	return scriptResponse{
		ID:            row.ID,
		Name:          row.Name,
		Content:       row.Content,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		AssignedSites: refs,
	}
}

func decodeScript(w http.ResponseWriter, r *http.Request) (scriptRequest, bool) {
	var req scriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body", []string{err.Error()})
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "script name is required", nil)
		return req, false
	}
	if strings.TrimSpace(req.Content) == "" {
		writeAPIError(w, http.StatusBadRequest, "script content is required", nil)
		return req, false
	}
	return req, true
}
