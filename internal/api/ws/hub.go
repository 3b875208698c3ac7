package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/adi-verma/quantscanner/pkg/logger"
)

// ProgressEvent is one scan progress update pushed to subscribers
type ProgressEvent struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Pct       int    `json:"pct"`
}

// Hub fans scan progress out to WebSocket subscribers. Slow or broken
// connections are dropped rather than allowed to stall a broadcast.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates a progress hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin in development
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  log.WithField("component", "ws"),
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the connection and keeps it subscribed until the
// client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.WithField("clients", count).Debug("WebSocket client connected")

	// Reader loop: we never expect messages, but reading is what detects
	// the close frame.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes an event to every subscriber
func (h *Hub) Broadcast(event ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Clients returns the current subscriber count
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
