package server

import "net/http"

// apiErrorResponse is the wire shape of every management API failure. The
// CLI's error mapper depends on the "error" key.
type apiErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeAPIError(w http.ResponseWriter, status int, message string, details []string) {
	writeJSON(w, status, apiErrorResponse{Error: message, Details: details})
}

// writeInternalAPIError logs the underlying error with its context attrs and
// sends the caller only the public message, never the error text.
func (s *Server) writeInternalAPIError(w http.ResponseWriter, r *http.Request, message string, err error, attrs ...any) {
	logAttrs := make([]any, 0, len(attrs)+2)
	logAttrs = append(logAttrs, "error", err)
	logAttrs = append(logAttrs, attrs...)
	s.logger.ErrorContext(r.Context(), message, logAttrs...)
	writeAPIError(w, http.StatusInternalServerError, message, nil)
}
