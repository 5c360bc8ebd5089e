package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service composes the connection manager and WebSocket handler into the
// live-update gateway.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// NewService wires the gateway around an already-built scoring app. The
// manager must have been created first (the app needs it as broadcaster);
// this completes the binding.
func NewService(cm *ConnectionManager, app ScoringApp) *Service {
	cm.Bind(app)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, app),
	}
}

// NewConnectionManagerWithDefaults is a convenience constructor for wiring.
func NewConnectionManagerWithDefaults(tracker ViewerTracker) *ConnectionManager {
	return NewConnectionManager(DefaultConnectionConfig(), tracker, clockwork.NewRealClock())
}

// Start runs the broadcast loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.connectionManager.Start(ctx)
}

// RegisterRoutes registers the gateway's HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("score gateway routes registered")
}
