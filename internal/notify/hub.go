// Package notify pushes progression side effects to subscribed pages
// over WebSocket.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/finsightlab/progression/internal/domain"
)

const writeTimeout = 5 * time.Second

// message is the wire format pushed to subscribers.
type message struct {
	Type       string                  `json:"type"`
	Badge      *domain.BadgeAward      `json:"badge,omitempty"`
	Assessment *domain.StageAssessment `json:"assessment,omitempty"`
}

// Hub tracks active subscriber connections per session and fans
// progression notifications out to them. It implements the engine's
// Notifier port.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]bool)}
}

// Register adds a subscriber connection for a session.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[sessionID]; !exists {
		h.active[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.active[sessionID][conn] = true
	slog.Info("Notification subscriber registered", "session_id", sessionID)
}

// Unregister removes a subscriber connection for a session.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.active[sessionID]; ok {
		if conns[conn] {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.active, sessionID)
			}
			slog.Info("Notification subscriber unregistered", "session_id", sessionID)
		}
	}
}

// Subscribers returns the number of active connections for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[sessionID])
}

// BadgeAwarded pushes a badge-award notification to the session's
// subscribers.
func (h *Hub) BadgeAwarded(sessionID string, award domain.BadgeAward) {
	h.publish(sessionID, message{Type: "badge_awarded", Badge: &award})
}

// StageChanged pushes a stage-change notification to the session's
// subscribers.
func (h *Hub) StageChanged(sessionID string, assessment domain.StageAssessment) {
	h.publish(sessionID, message{Type: "stage_changed", Assessment: &assessment})
}

// CloseAll terminates every subscriber connection, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, conns := range h.active {
		for conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(h.active, sessionID)
	}
}

// publish writes a notification to every subscriber of a session. A page
// with no open subscription simply misses the push; failed writes are
// logged and the connection is left to its read loop to reap.
func (h *Hub) publish(sessionID string, msg message) {
	encoded, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode notification", "error", err, "type", msg.Type)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[sessionID]))
	for conn := range h.active[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := conn.Write(ctx, websocket.MessageText, encoded); err != nil {
			slog.Debug("Notification write failed", "session_id", sessionID, "error", err)
		}
		cancel()
	}
}
