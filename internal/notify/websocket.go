package notify

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/finsightlab/progression/internal/identity"
)

// WebSocketHandler upgrades notification subscriptions.
type WebSocketHandler struct {
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a subscription handler over a hub.
func NewWebSocketHandler(hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, allowedOrigin: allowedOrigin, isDev: isDev}
}

// ServeHTTP implements http.Handler for WebSocket upgrade. The connection
// is write-only from the server's perspective; the read loop exists to
// notice the client going away.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "subscription ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.hub.Register(sessionID, ws)
	defer h.hub.Unregister(sessionID, ws)

	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Debug("WebSocket read ended", "error", err, "session_id", sessionID)
			}
			return
		}
		// Inbound frames are ignored; the subscription is push-only.
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
