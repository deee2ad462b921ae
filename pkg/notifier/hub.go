package notifier

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Hub broadcasts events to connected websocket clients.
// The last event is replayed to new clients.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool

	// Serialises writes, a websocket conn allows one writer at a time
	writeMu sync.Mutex
	latest  *Event
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger.With(zap.String("component", "websocket_hub")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboard is served from another origin
			},
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

// Publish never fails, clients that cannot be written to are dropped.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	data := ev.ToJsonBytes()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	h.latest = &ev

	for _, client := range h.snapshot() {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping websocket client", zap.String("remote", client.RemoteAddr().String()), zap.Error(err))
			h.remove(client)
		}
	}
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.writeMu.Lock()
	h.add(conn)
	// Send latest event immediately if available
	if h.latest != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, h.latest.ToJsonBytes())
	}
	h.writeMu.Unlock()

	// Keep connection alive until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, client := range h.snapshot() {
		h.writeMu.Lock()
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		h.writeMu.Unlock()
		h.remove(client)
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) add(conn *websocket.Conn) {
	h.clientsMu.Lock()
	h.clients[conn] = true
	h.clientsMu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.clientsMu.Unlock()
	if ok {
		conn.Close()
	}
}
