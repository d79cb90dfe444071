package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	dbpkg "github.com/injectly/injectly/internal/db"
	"github.com/injectly/injectly/internal/resolve"
	sqlite3 "modernc.org/sqlite"
)

type siteRequest struct {
	Domain string `json:"domain"`
}

type siteResponse struct {
	ID        int64  `json:"id"`
	Domain    string `json:"domain"`
	Wildcard  bool   `json:"wildcard"`
	CreatedAt string `json:"createdAt"`
}

type sitesResponse struct {
	Sites []siteResponse `json:"sites"`
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSites(w, r)
	case http.MethodPost:
		s.handleCreateSite(w, r)
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleSiteItem(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := parseItemPath(r.URL.Path, "sites")
	if !ok || sub != "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSite(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSite(w, r, id)
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodDelete)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	q := dbpkg.NewQueries(s.db)
	rows, err := q.ListSites(r.Context())
	if err != nil {
		s.writeInternalAPIError(w, r, "list sites failed", err)
		return
	}

	items := make([]siteResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapSiteRow(row))
	}
	writeJSON(w, http.StatusOK, sitesResponse{Sites: items})
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body", []string{err.Error()})
		return
	}

	parsed, err := resolve.Parse(req.Domain)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	q := dbpkg.NewQueries(s.db)
	id, err := q.InsertSite(r.Context(), dbpkg.SiteRow{
		Domain:     parsed.Domain,
		Wildcard:   parsed.Wildcard,
		BaseDomain: parsed.Base,
	})
	if err != nil {
		if isSiteUniqueConstraintError(err) {
			writeAPIError(w, http.StatusConflict, fmt.Sprintf("domain %q is already registered", parsed.Domain), nil)
			return
		}
		s.writeInternalAPIError(w, r, "create site failed", err, "domain", parsed.Domain)
		return
	}
	row, err := q.GetSiteByID(r.Context(), id)
	if err != nil {
		s.writeInternalAPIError(w, r, "load created site failed", err, "site_id", id)
		return
	}
	s.logger.Info("site registered", "site_id", id, "domain", parsed.Domain, "wildcard", parsed.Wildcard)
	writeJSON(w, http.StatusCreated, mapSiteRow(row))
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request, id int64) {
	q := dbpkg.NewQueries(s.db)
	row, err := q.GetSiteByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, fmt.Sprintf("site %d not found", id), nil)
			return
		}
		s.writeInternalAPIError(w, r, "get site failed", err, "site_id", id)
		return
	}
	writeJSON(w, http.StatusOK, mapSiteRow(row))
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request, id int64) {
	q := dbpkg.NewQueries(s.db)
	deleted, err := q.DeleteSiteByID(r.Context(), id)
	if err != nil {
		s.writeInternalAPIError(w, r, "delete site failed", err, "site_id", id)
		return
	}
	if !deleted {
		writeAPIError(w, http.StatusNotFound, fmt.Sprintf("site %d not found", id), nil)
		return
	}
	s.logger.Info("site removed", "site_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func mapSiteRow(row dbpkg.SiteRow) siteResponse {
	return siteResponse{
		ID:        row.ID,
		Domain:    row.Domain,
		Wildcard:  row.Wildcard,
		CreatedAt: row.CreatedAt,
	}
}

func isSiteUniqueConstraintError(err error) bool {
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case 2067, 1555:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, "sites.domain")
}
