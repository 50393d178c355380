package websocket

import (
	"net/http"
	"time"

	"github.com/conneroisu/docsman/internal/logging"
	"github.com/conneroisu/docsman/internal/registry"
)

// Manager upgrades /ws requests and keeps each connection registered for as
// long as it stays open.
type Manager struct {
	registry       *registry.ClientRegistry
	originPatterns []string
	pingInterval   time.Duration
	logger         logging.Logger
}

// NewManager creates a Manager that registers connections in reg.
func NewManager(reg *registry.ClientRegistry, originPatterns []string, pingInterval time.Duration, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Manager{
		registry:       reg,
		originPatterns: originPatterns,
		pingInterval:   pingInterval,
		logger:         logger.WithComponent("websocket"),
	}
}

// ServeHTTP accepts the connection, registers it and blocks until the peer
// goes away. The client is removed on return.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := Accept(w, r, m.originPatterns)
	if err != nil {
		// Accept has already written the HTTP error response.
		m.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote_addr", r.RemoteAddr)
		return
	}

	id := m.registry.Add(conn)
	defer m.registry.Remove(id)

	m.logger.Debug(r.Context(), "WebSocket client registered", "client_id", id, "remote_addr", r.RemoteAddr)

	conn.Run(r.Context(), m.pingInterval)
}
