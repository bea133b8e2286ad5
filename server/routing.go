package server

import "net/http"

// setupHTTPRoutes configures all HTTP handlers
func (s *Server) setupHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/surface", s.corsMiddleware(s.HandleSurface))             // Rendered document with bridge
	mux.HandleFunc("/surface/ws", s.corsMiddleware(s.HandleSurfaceWebSocket)) // Selection channel
	mux.HandleFunc("/api/view", s.corsMiddleware(s.HandleView))               // Workspace snapshot (GET)
	mux.HandleFunc("/healthz", s.corsMiddleware(s.HandleHealth))
}

// corsMiddleware adds CORS headers for allowed origins
// Uses the same origin validation as WebSocket connections
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && checkOrigin(r, s.opts.AllowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
