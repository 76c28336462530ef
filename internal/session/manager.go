// Package session adapts the conversation controller to WebSocket clients.
package session

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

type activeConn struct {
	id   string
	conn *websocket.Conn
}

// Manager tracks the live WebSocket connection of each user. A user has at
// most one connection; a new one replaces the old.
type Manager struct {
	mu     sync.RWMutex
	active map[string]activeConn
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]activeConn)}
}

// GetActive returns the active connection for a user.
func (m *Manager) GetActive(userID string) (connID string, conn *websocket.Conn) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.active[userID]
	if !ok {
		return "", nil
	}
	return c.id, c.conn
}

// Register adds a connection, closing any connection it replaces.
func (m *Manager) Register(userID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	existing, exists := m.active[userID]
	m.active[userID] = activeConn{id: connID, conn: conn}
	m.mu.Unlock()

	if exists && existing.conn != conn && existing.conn != nil {
		_ = existing.conn.Close(websocket.StatusPolicyViolation, "session replaced")
		slog.Info("Session replaced", "user_id", userID, "old_connection_id", existing.id, "connection_id", connID)
	}
	slog.Info("Session registered", "user_id", userID, "connection_id", connID)
}

// Unregister removes a connection. It reports false for a connection that
// was already replaced.
func (m *Manager) Unregister(userID, connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.active[userID]
	if !ok || current.id != connID {
		return false
	}
	delete(m.active, userID)
	slog.Info("Session unregistered", "user_id", userID, "connection_id", connID)
	return true
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CloseSession terminates the connection of a user.
func (m *Manager) CloseSession(userID string) {
	m.mu.Lock()
	c, ok := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	if ok && c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Session closed", "user_id", userID, "connection_id", c.id)
	}
}

// CloseAll terminates every connection, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := m.active
	m.active = make(map[string]activeConn)
	m.mu.Unlock()

	for userID, c := range conns {
		if c.conn != nil {
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		slog.Debug("Session closed on shutdown", "user_id", userID)
	}
}
