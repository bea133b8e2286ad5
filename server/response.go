package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/teranos/graphex/logger"
)

// errorBody is the JSON shape of every error the surface host returns.
type errorBody struct {
	Error string `json:"error"`
}

// healthBody is the /healthz reply.
type healthBody struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	DocumentVersion uint64 `json:"document_version"`
	Mounted         bool   `json:"mounted"`
}

// writeJSON encodes v with status. Encoding failures can only be logged once
// the header is out.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debugw("Failed to write JSON response", logger.FieldStatus, status, logger.FieldError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Error: message})
}

// writeDocument serves a surface page. Pages are never cached because the
// bridge pins the document version they were served for.
func (s *Server) writeDocument(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		s.log.Debugw("Failed to write surface document", logger.FieldError, err)
	}
}

// allowMethods answers 405 with an Allow header unless r uses one of methods.
func (s *Server) allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.writeError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
	return false
}

// shortID keeps mount ids readable in logs.
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
