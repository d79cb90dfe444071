package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/injectly/injectly/internal/bundle"
	"github.com/injectly/injectly/internal/calllog"
	dbpkg "github.com/injectly/injectly/internal/db"
	"github.com/injectly/injectly/internal/resolve"
	"github.com/injectly/injectly/internal/snippet"
)

// loaderScript is the domain-agnostic bootstrap every customer site embeds.
// It re-requests this same endpoint with the page's own host appended, so
// one identical embed tag works across all registered sites.
const loaderScript = `(function() {
  var siteDomain = window.location.host;
  var fullSrc = document.currentScript && document.currentScript.src
    ? document.currentScript.src
    : '';
  var baseURL = fullSrc.split('?')[0];
  var scriptTag = document.createElement('script');
  scriptTag.src = baseURL + '?site=' + encodeURIComponent(siteDomain);
  scriptTag.defer = true;
  document.head.appendChild(scriptTag);
})();
`

// handleInject serves the bundle endpoint. Every failure path that a browser
// <script> tag can reach still returns syntactically valid JavaScript; only
// "no domain at all" is a plain client error.
func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeAPIError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	query := r.URL.Query()
	if !query.Has("site") {
		writeScript(w, http.StatusOK, loaderScript)
		return
	}

	domain, err := resolve.RequestDomain(query.Get("site"), r.Referer())
	if err != nil {
		if errors.Is(err, resolve.ErrMissingDomain) {
			http.Error(w, "Site domain not provided.", http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid site domain.", http.StatusBadRequest)
		return
	}

	site, err := s.resolveSite(r.Context(), domain)
	if err != nil {
		if errors.Is(err, resolve.ErrNotRegistered) {
			writeScript(w, http.StatusNotFound, notRegisteredScript(domain))
			return
		}
		s.logger.ErrorContext(r.Context(), "site resolution failed", "domain", domain, "error", err)
		writeScript(w, http.StatusInternalServerError, inertScript("Injectly: Internal error resolving "+domain+"."))
		return
	}

	q := dbpkg.NewQueries(s.db)
	scripts, err := q.ListScriptsForSite(r.Context(), site.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list assigned scripts failed", "domain", domain, "site_id", site.ID, "error", err)
		writeScript(w, http.StatusInternalServerError, inertScript("Injectly: Internal error loading scripts for "+domain+"."))
		return
	}

	// The site can vanish between resolution and the assignment query when
	// an operator deletes it mid-request. Serve the not-registered script
	// rather than an empty bundle that suggests the domain is still live.
	if _, err := q.GetSiteByID(r.Context(), site.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeScript(w, http.StatusNotFound, notRegisteredScript(domain))
			return
		}
		s.logger.ErrorContext(r.Context(), "site recheck failed", "domain", domain, "site_id", site.ID, "error", err)
	}

	if len(scripts) == 0 {
		writeScript(w, http.StatusOK, inertScript("Injectly: No scripts to inject for "+domain))
		return
	}

	classified := make([]snippet.Snippet, 0, len(scripts))
	for _, row := range scripts {
		classified = append(classified, snippet.Classify(row.Content))
	}
	body := bundle.Assemble(domain, classified)

	// Call-log writes are best-effort: a full queue or closed logger must
	// never delay or fail delivery.
	for _, row := range scripts {
		if err := s.callLogger.Log(r.Context(), calllog.Entry{ScriptID: row.ID}); err != nil {
			s.logger.Warn("call log append dropped", "script_id", row.ID, "domain", domain, "error", err)
		}
	}

	s.logger.Info("bundle served", "domain", domain, "site_id", site.ID, "script_count", len(scripts))
	writeScript(w, http.StatusOK, body)
}

// resolveSite maps a request domain to a registered site: exact match first,
// then wildcard-subdomain records.
func (s *Server) resolveSite(ctx context.Context, domain string) (dbpkg.SiteRow, error) {
	q := dbpkg.NewQueries(s.db)

	row, err := q.GetSiteByDomain(ctx, domain)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return dbpkg.SiteRow{}, err
	}

	wildcards, err := q.ListWildcardSites(ctx)
	if err != nil {
		return dbpkg.SiteRow{}, err
	}
	for _, candidate := range wildcards {
		site := resolve.Site{Domain: candidate.Domain, Wildcard: true, Base: candidate.BaseDomain}
		if site.Matches(domain) {
			return candidate, nil
		}
	}
	return dbpkg.SiteRow{}, resolve.ErrNotRegistered
}

func notRegisteredScript(domain string) string {
	return inertScript(fmt.Sprintf("Injectly: Site %q not registered.", domain))
}

func inertScript(message string) string {
	return fmt.Sprintf("console.log(%s);\n", bundle.JSString(message))
}

// writeScript sends JavaScript with headers that defeat caching at every
// layer, so script changes take effect on the next page load.
func writeScript(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
