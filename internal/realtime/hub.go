// Package realtime pushes register changes to connected browsers over
// WebSocket so that every open tab can refresh its view.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JonMunkholm/tamween/internal/core"
)

// EventStoreChanged is the event name sent for every register change.
const EventStoreChanged = "store_changed"

const writeTimeout = 5 * time.Second

// Message is the envelope written to every connection.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks open connections and broadcasts to all of them.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*wsConn]struct{}
	upgrader websocket.Upgrader
}

// wsConn wraps a websocket connection with a write mutex to serialize writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// NewHub creates a Hub. The upgrader keeps gorilla's same-origin check.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*wsConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) register(conn *websocket.Conn) *wsConn {
	wc := &wsConn{conn: conn}
	h.mu.Lock()
	h.conns[wc] = struct{}{}
	h.mu.Unlock()
	return wc
}

func (h *Hub) unregister(wc *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[wc]; ok {
		wc.conn.Close()
		delete(h.conns, wc)
	}
}

// Broadcast sends event to every connection. Connections that fail the
// write are dropped.
func (h *Hub) Broadcast(event string, payload any) {
	msg := Message{Event: event, Data: payload}

	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.conns))
	for wc := range h.conns {
		targets = append(targets, wc)
	}
	h.mu.RUnlock()

	for _, wc := range targets {
		if err := wc.send(msg); err != nil {
			slog.Debug("ws: write failed, dropping connection", "event", event, "error", err)
			h.unregister(wc)
		}
	}
}

// Run forwards changes to every connection until ctx is done or changes is
// closed. It is typically fed by core.Service.Subscribe.
func (h *Hub) Run(ctx context.Context, changes <-chan core.Change) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c, ok := <-changes:
			if !ok {
				h.closeAll()
				return
			}
			h.Broadcast(EventStoreChanged, c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for wc := range h.conns {
		_ = wc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		wc.conn.Close()
		delete(h.conns, wc)
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("ws: upgrade failed", "error", err)
		return
	}
	wc := h.register(conn)
	slog.Debug("ws: client connected", "remote", r.RemoteAddr, "clients", h.Len())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(wc)
			return
		}
	}
}
