package server

import (
	"net/http"
	"strconv"
	"strings"
)

func registerRoutes(mux *http.ServeMux, srv *Server) {
	mux.HandleFunc("/inject.js", srv.handleInject)

	mux.HandleFunc("/api/v1/setup", srv.handleSetup)
	mux.HandleFunc("/api/v1/login", srv.handleLogin)
	mux.HandleFunc("/api/v1/logout", srv.requireSession(srv.handleLogout))
	mux.HandleFunc("/api/v1/account", srv.requireSession(srv.handleAccount))
	mux.HandleFunc("/api/v1/scripts", srv.requireSession(srv.handleScripts))
	mux.HandleFunc("/api/v1/scripts/", srv.requireSession(srv.handleScriptItem))
	mux.HandleFunc("/api/v1/sites", srv.requireSession(srv.handleSites))
	mux.HandleFunc("/api/v1/sites/", srv.requireSession(srv.handleSiteItem))
}

// parseItemPath splits /api/v1/<resource>/{id}[/<sub>] into id and sub.
func parseItemPath(pathValue, resource string) (id int64, sub string, ok bool) {
	parts := strings.Split(strings.Trim(pathValue, "/"), "/")
	if len(parts) != 4 && len(parts) != 5 {
		return 0, "", false
	}
	if parts[0] != "api" || parts[1] != "v1" || parts[2] != resource {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	if len(parts) == 5 {
		sub = parts[4]
	}
	return id, sub, true
}
