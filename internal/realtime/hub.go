// Package realtime pushes task events to every connected WebSocket client.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Metrics receives hub activity. metrics.Collector satisfies it.
type Metrics interface {
	EventPublished(kind string)
	FrameDropped()
	ClientConnected()
	ClientDisconnected()
}

type nopMetrics struct{}

func (nopMetrics) EventPublished(string) {}
func (nopMetrics) FrameDropped()         {}
func (nopMetrics) ClientConnected()      {}
func (nopMetrics) ClientDisconnected()   {}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub is the process-wide broadcaster. Publish never blocks on a slow
// client: each client has a bounded queue and frames that do not fit are dropped.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  Metrics
}

func NewHub(logger *zap.Logger, metrics Metrics, allowedOrigins []string) *Hub {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Encode builds the wire frame {"event": kind, "data": payload}.
func Encode(kind model.EventKind, payload any) ([]byte, error) {
	return json.Marshal(model.Event{Kind: kind, Data: payload})
}

func (h *Hub) Publish(_ context.Context, kind model.EventKind, payload any) {
	frame, err := Encode(kind, payload)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", string(kind)), zap.Error(err))
		return
	}
	h.metrics.EventPublished(string(kind))
	h.Deliver(frame)
}

// Deliver queues an already encoded frame for every connected client.
func (h *Hub) Deliver(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.metrics.FrameDropped()
			h.logger.Warn("client send queue full, dropping frame", zap.String("client_id", c.id))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection until either side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err),
		)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		h.metrics.ClientDisconnected()
	}
	h.logger.Info("realtime hub closed")
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.ClientConnected()
	h.logger.Info("client connected", zap.String("client_id", c.id))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.metrics.ClientDisconnected()
		h.logger.Info("client disconnected", zap.String("client_id", c.id))
	}
}

// readPump discards inbound frames; it only keeps the read deadline fresh
// and notices when the peer goes away.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients), any origin when "*" is configured, and otherwise exact matches.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	_, allowAll := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
