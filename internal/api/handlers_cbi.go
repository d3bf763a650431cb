package api

import "net/http"

// handleCBI fetches the Compensation and Benefits Instructions on behalf of
// the client.
func (s *Server) handleCBI(w http.ResponseWriter, r *http.Request) {
	content, err := s.pages.Fetch(r.Context(), s.cfg.CBIURL)
	if err != nil {
		s.log.Error("cbi fetch failed", "url", s.cfg.CBIURL, "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": content.TextContent})
}
