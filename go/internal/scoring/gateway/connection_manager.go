package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/iNESlab/golbang-live/go/internal/metrics"
	"github.com/iNESlab/golbang-live/go/internal/models"
	"github.com/iNESlab/golbang-live/go/internal/scoring"
)

// ViewerTracker observes viewer connect/disconnect per event. The
// persistence scheduler implements it; viewer lifetime is its only
// lifecycle signal.
type ViewerTracker interface {
	ViewerConnected(eventID uuid.UUID)
	ViewerDisconnected(eventID uuid.UUID)
}

// ScoringApp is what the gateway needs from the scoring pipeline.
type ScoringApp interface {
	ResolveEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	WarmCache(ctx context.Context, eventID uuid.UUID) error
	SubmitScore(ctx context.Context, event *models.Event, participantID uuid.UUID, holeNumber, score int) (*scoring.ScoreUpdate, error)
	GroupRoster(ctx context.Context, eventID uuid.UUID, groupType int) ([]scoring.ScoreUpdate, error)
	BroadcastSnapshot(ctx context.Context, eventID uuid.UUID) error
}

// ConnectionManager manages the WebSocket viewer connections of live
// events. Each event has two logical channels: the event-wide channel
// (full ranking snapshots) and a per-group channel (score-input echoes and
// team-win flags).
type ConnectionManager struct {
	rooms map[uuid.UUID]*eventRoom
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock

	tracker ViewerTracker
	app     ScoringApp

	broadcastCh chan broadcastMessage
}

type eventRoom struct {
	conns   map[*Connection]bool
	byGroup map[int]map[*Connection]bool

	// stopSnapshots cancels the room's periodic snapshot loop when the
	// last viewer leaves.
	stopSnapshots context.CancelFunc
}

// Connection represents one viewer's WebSocket connection.
type Connection struct {
	ID        string
	Event     *models.Event
	GroupType *int
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds WebSocket and fan-out tuning.
type ConnectionConfig struct {
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	SnapshotInterval time.Duration
	RequestTimeout   time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
	CheckOrigin      func(r *http.Request) bool
}

type broadcastMessage struct {
	eventID   uuid.UUID
	groupType *int // nil targets the event-wide channel
	data      []byte
	scope     string
}

// DefaultConnectionConfig returns the default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		SnapshotInterval: 5 * time.Minute,
		RequestTimeout:   10 * time.Second,
		MaxMessageSize:   1024,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin: func(r *http.Request) bool {
			// Identity and authorization are resolved upstream; allow any
			// origin here.
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. The scoring app is
// attached afterwards with Bind, since it needs the manager as its
// broadcaster.
func NewConnectionManager(config ConnectionConfig, tracker ViewerTracker, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		rooms: make(map[uuid.UUID]*eventRoom),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		tracker:     tracker,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Bind attaches the scoring app. Two-step wiring: the app needs the
// manager as its Broadcaster and the manager needs the app for inbound
// messages and snapshots.
func (cm *ConnectionManager) Bind(app ScoringApp) {
	cm.app = app
}

// Start processes broadcast fan-out until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("score connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("score connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a viewer connection joined
// to the event channel and, when groupType is set, the group channel.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, event *models.Event, groupType *int) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return err
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Event:       event,
		GroupType:   groupType,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("event_id", event.ID.String()).
		Msg("viewer connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	eventID := conn.Event.ID

	cm.mu.Lock()
	room, exists := cm.rooms[eventID]
	if !exists {
		snapshotCtx, cancel := context.WithCancel(context.Background())
		room = &eventRoom{
			conns:         make(map[*Connection]bool),
			byGroup:       make(map[int]map[*Connection]bool),
			stopSnapshots: cancel,
		}
		cm.rooms[eventID] = room
		go cm.snapshotLoop(snapshotCtx, eventID)
	}
	room.conns[conn] = true
	if conn.GroupType != nil {
		group := room.byGroup[*conn.GroupType]
		if group == nil {
			group = make(map[*Connection]bool)
			room.byGroup[*conn.GroupType] = group
		}
		group[conn] = true
	}
	total := len(room.conns)
	cm.mu.Unlock()

	metrics.ActiveConnections.Inc()
	cm.tracker.ViewerConnected(eventID)

	log.Debug().
		Str("connection_id", conn.ID).
		Str("event_id", eventID.String()).
		Int("total_connections", total).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	eventID := conn.Event.ID

	cm.mu.Lock()
	room, exists := cm.rooms[eventID]
	if !exists || !room.conns[conn] {
		cm.mu.Unlock()
		return
	}
	delete(room.conns, conn)
	close(conn.Send)
	if conn.GroupType != nil {
		if group := room.byGroup[*conn.GroupType]; group != nil {
			delete(group, conn)
			if len(group) == 0 {
				delete(room.byGroup, *conn.GroupType)
			}
		}
	}
	if len(room.conns) == 0 {
		room.stopSnapshots()
		delete(cm.rooms, eventID)
	}
	cm.mu.Unlock()

	metrics.ActiveConnections.Dec()
	cm.tracker.ViewerDisconnected(eventID)

	log.Info().
		Str("connection_id", conn.ID).
		Str("event_id", eventID.String()).
		Msg("connection unregistered")
}

// BroadcastGroupUpdate delivers a score update to every connection joined
// to the (event, group) channel. Implements scoring.Broadcaster.
func (cm *ConnectionManager) BroadcastGroupUpdate(eventID uuid.UUID, groupType int, update scoring.ScoreUpdate) {
	data, err := encodeServerMessage(MessageTypeScore, update)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode score update")
		return
	}
	cm.enqueue(broadcastMessage{eventID: eventID, groupType: &groupType, data: data, scope: "group"})
}

// BroadcastEventSnapshot delivers a full ranking snapshot to every
// connection joined to the event. Implements scoring.Broadcaster.
func (cm *ConnectionManager) BroadcastEventSnapshot(eventID uuid.UUID, snapshot scoring.EventSnapshot) {
	data, err := encodeServerMessage(MessageTypeSnapshot, snapshot)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode event snapshot")
		return
	}
	cm.enqueue(broadcastMessage{eventID: eventID, data: data, scope: "event"})
}

func (cm *ConnectionManager) enqueue(message broadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().
			Str("event_id", message.eventID.String()).
			Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	room, exists := cm.rooms[message.eventID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targets []*Connection
	if message.groupType != nil {
		for conn := range room.byGroup[*message.groupType] {
			targets = append(targets, conn)
		}
	} else {
		for conn := range room.conns {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.data:
		default:
			// Slow or dead consumer; evict it rather than stall fan-out.
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	metrics.BroadcastsSent.WithLabelValues(message.scope).Add(float64(len(targets)))
}

// snapshotLoop pushes the full event snapshot to the event channel on a
// fixed cadence while the room has viewers.
func (cm *ConnectionManager) snapshotLoop(ctx context.Context, eventID uuid.UUID) {
	ticker := cm.clock.NewTicker(cm.config.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := cm.app.BroadcastSnapshot(ctx, eventID); err != nil {
				log.Error().Err(err).
					Str("event_id", eventID.String()).
					Msg("periodic snapshot broadcast failed")
			}
		}
	}
}

// ConnectionStats reports active connection counts per event.
func (cm *ConnectionManager) ConnectionStats() (total int, perEvent map[string]int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	perEvent = make(map[string]int, len(cm.rooms))
	for eventID, room := range cm.rooms {
		perEvent[eventID.String()] = len(room.conns)
		total += len(room.conns)
	}
	return total, perEvent
}

// send delivers a frame to this connection only; used for inline replies.
func (c *Connection) send(data []byte) {
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("dropping reply to slow connection")
	}
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
// Submissions from one connection are processed in receipt order.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}
		c.Manager.handleClientMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
