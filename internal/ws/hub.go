package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks active UI websocket connections so they can be torn down
// together on shutdown. Each connection owns its own store subscription;
// the hub only does bookkeeping.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]ConnInfo
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]ConnInfo)}
}

// Add registers a connection. It returns false when the hub is already
// closed, in which case the caller must not serve the connection.
func (h *Hub) Add(conn *websocket.Conn, info ConnInfo) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = info
	return true
}

// Remove drops a connection from the registry.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Len reports the number of active connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close rejects new connections and closes every active one. The
// per-connection goroutines observe the closed socket and clean up.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[*websocket.Conn]ConnInfo)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
