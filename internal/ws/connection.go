/*-------------------------------------------------------------------------
 *
 * connection.go
 *    WebSocket connection wrapper and per-user registry
 *
 * Wraps a gorilla WebSocket connection with write serialization, ping
 * keepalive, and close handling. The registry maps (user, connection)
 * pairs to live connections; sends are always addressed to one
 * registered connection, never broadcast.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/ws/connection.go
 *
 *-------------------------------------------------------------------------
 */

package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	/* WebSocket connection timeouts */
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
)

/* Conn is the transport collaborator boundary: send JSON to the
 * connection associated with a user/connection id. Tests substitute a
 * recorder. */
type Conn interface {
	ID() string
	UserID() string
	SendJSON(ctx context.Context, v interface{}) error
	Close() error
}

/* wsConn wraps a gorilla connection */
type wsConn struct {
	id        string
	userID    string
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
	closed    bool
}

/* NewConn wraps an upgraded gorilla connection for a user */
func NewConn(conn *websocket.Conn, userID string, writeWait time.Duration) Conn {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &wsConn{
		id:        uuid.New().String(),
		userID:    userID,
		conn:      conn,
		writeWait: writeWait,
	}
}

/* ID returns the connection id */
func (c *wsConn) ID() string {
	return c.id
}

/* UserID returns the owning user */
func (c *wsConn) UserID() string {
	return c.userID
}

/* SendJSON writes a JSON message with the write deadline applied */
func (c *wsConn) SendJSON(ctx context.Context, v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("send failed: connection_closed=true, connection_id='%s'", c.id)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteJSON(v)
}

/* Close closes the underlying connection */
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return c.conn.Close()
}

/* ConnManager tracks live connections per user */
type ConnManager struct {
	mu          sync.RWMutex
	connections map[string]map[string]Conn /* user id -> connection id -> conn */
}

/* NewConnManager creates an empty connection registry */
func NewConnManager() *ConnManager {
	return &ConnManager{
		connections: make(map[string]map[string]Conn),
	}
}

/* Register adds a connection for its user */
func (m *ConnManager) Register(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userConns, ok := m.connections[conn.UserID()]
	if !ok {
		userConns = make(map[string]Conn)
		m.connections[conn.UserID()] = userConns
	}
	userConns[conn.ID()] = conn
}

/* Unregister removes a connection */
func (m *ConnManager) Unregister(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userConns, ok := m.connections[conn.UserID()]
	if !ok {
		return
	}
	delete(userConns, conn.ID())
	if len(userConns) == 0 {
		delete(m.connections, conn.UserID())
	}
}

/* Get returns the connection registered for a (user, connection) pair.
 * Lookups always require the user id so one user can never address
 * another user's connection. */
func (m *ConnManager) Get(userID, connectionID string) (Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userConns, ok := m.connections[userID]
	if !ok {
		return nil, false
	}
	conn, ok := userConns[connectionID]
	return conn, ok
}

/* CountForUser returns the number of live connections for a user */
func (m *ConnManager) CountForUser(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections[userID])
}
