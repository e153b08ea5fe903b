// Package server exposes the HTTP control surface and the websocket feed.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"arbsim/business/engine/app"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// pingPeriod keeps idle connections alive.
	pingPeriod = 50 * time.Second

	// sendBufferSize is the per-client outgoing buffer.
	sendBufferSize = 64
)

// client is one connected websocket consumer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine events out to connected websocket clients. Slow clients
// have messages dropped rather than stalling the broadcast.
type Hub struct {
	logger  *slog.Logger
	welcome func() any

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub. welcome builds the payload pushed to every client
// on connect.
func NewHub(welcome func() any, logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		welcome: welcome,
		clients: make(map[*client]struct{}),
	}
}

// Broadcast implements app.Broadcaster.
func (h *Hub) Broadcast(event app.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal broadcast event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping message for slow websocket client")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS accepts a websocket connection and streams events to it.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "total_clients", total)

	h.sendWelcome(c)

	ctx := r.Context()
	go h.readLoop(ctx, c)
	h.writeLoop(ctx, c)
}

func (h *Hub) sendWelcome(c *client) {
	data, err := json.Marshal(app.Event{Type: app.EventWelcome, Data: h.welcome()})
	if err != nil {
		h.logger.Error("marshal welcome payload", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readLoop drains incoming frames until the client goes away. Clients only
// consume; anything they send is ignored.
func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	defer h.drop(c)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("websocket client disconnected", "total_clients", total)
}
