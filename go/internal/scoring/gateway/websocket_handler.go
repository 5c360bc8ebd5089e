package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for score viewer
// connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	app               ScoringApp
}

func NewWebSocketHandler(cm *ConnectionManager, app ScoringApp) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm, app: app}
}

// HandleScoreConnection joins a viewer to an event's score channels.
// Identity and authorization are resolved upstream before a request
// reaches this handler.
func (h *WebSocketHandler) HandleScoreConnection(w http.ResponseWriter, r *http.Request) {
	eventIDStr := r.URL.Query().Get("event_id")
	if eventIDStr == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}
	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		http.Error(w, "invalid event_id format", http.StatusBadRequest)
		return
	}

	var groupType *int
	if groupStr := r.URL.Query().Get("group_type"); groupStr != "" {
		group, err := strconv.Atoi(groupStr)
		if err != nil {
			http.Error(w, "invalid group_type format", http.StatusBadRequest)
			return
		}
		groupType = &group
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.connectionManager.config.RequestTimeout)
	defer cancel()

	event, err := h.app.ResolveEvent(ctx, eventID)
	if err != nil {
		// Unknown event: complete the upgrade so the close code reaches
		// the client, then close with the join-failure code.
		conn, upErr := h.connectionManager.upgrader.Upgrade(w, r, nil)
		if upErr != nil {
			return
		}
		msg := websocket.FormatCloseMessage(CloseUnknownEvent, "unknown event")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		log.Warn().Err(err).
			Str("event_id", eventID.String()).
			Msg("rejected viewer for unknown event")
		return
	}

	if err := h.app.WarmCache(ctx, eventID); err != nil {
		// A cold cache that cannot be warmed is not fatal for joining; the
		// viewer can still submit scores once the cache recovers.
		log.Error().Err(err).
			Str("event_id", eventID.String()).
			Msg("cache warm-up failed on join")
	}

	if err := h.connectionManager.UpgradeConnection(w, r, event, groupType); err != nil {
		log.Error().Err(err).
			Str("event_id", eventID.String()).
			Msg("failed to upgrade viewer connection")
	}
}

// HandleConnectionStats reports active connection counts.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, perEvent := h.connectionManager.ConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_connections": total,
		"active_events":     len(perEvent),
		"event_connections": perEvent,
	})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/score", h.HandleScoreConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
