package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// defaultAllowedOrigins is used when no origins are configured.
var defaultAllowedOrigins = []string{"http://localhost", "https://localhost", "http://127.0.0.1"}

// surfaceUpgrader creates a WebSocket upgrader with origin checking against allowed
func surfaceUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin: func(r *http.Request) bool {
			return checkOrigin(r, allowed)
		},
	}
}

// checkOrigin validates the request origin against allowed origins
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")

	// Allow requests with no origin header (e.g., direct WebSocket clients, testing)
	if origin == "" {
		return true
	}

	if len(allowed) == 0 {
		allowed = defaultAllowedOrigins
	}

	// Prefix matching allows any port number
	for _, o := range allowed {
		if strings.HasPrefix(origin, o) {
			return true
		}
	}
	return false
}
