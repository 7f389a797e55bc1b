package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrConnectionNotFound is returned when no presentation is attached to a session.
var ErrConnectionNotFound = errors.New("connection not found")

// Hub manages WebSocket connections, one per quiz session: the attached
// presentation receives tick and timeout messages for that session.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // session_id -> connection
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Register attaches a connection to a session, replacing any previous one.
func (h *Hub) Register(sessionID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[sessionID]; exists {
		old.Close()
	}
	h.connections[sessionID] = conn
	h.logger.Info().Str("session_id", sessionID).Msg("connection registered")
}

// Unregister detaches and closes a session's connection if it is the given one.
func (h *Hub) Unregister(sessionID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, exists := h.connections[sessionID]; exists && cur == conn {
		cur.Close()
		delete(h.connections, sessionID)
		h.logger.Info().Str("session_id", sessionID).Msg("connection unregistered")
	}
}

// Send delivers a message to the session's presentation, if attached.
func (h *Hub) Send(sessionID string, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[sessionID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// Connection wraps a WebSocket connection with a serialized writer.
type Connection struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a raw WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{conn: conn, logger: logger}
}

// Send writes a message to the peer. Writes are serialized because gorilla
// connections allow only one concurrent writer.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionNotFound
	}
	return c.conn.WriteJSON(msg)
}

// ReadMessage blocks for the next client message, used for ping handling.
func (c *Connection) ReadMessage() (Message, error) {
	var msg Message
	err := c.conn.ReadJSON(&msg)
	return msg, err
}

// Close shuts the underlying socket. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("websocket close")
	}
}
