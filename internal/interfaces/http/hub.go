package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBuffer     = 8
	maxInboundSize = 512
	eventTopCoins  = 10
)

// ScanEvent is pushed to websocket clients after every scan
type ScanEvent struct {
	Type       string                 `json:"type"`
	ScanID     string                 `json:"scan_id"`
	Strategy   string                 `json:"strategy"`
	FinishedAt time.Time              `json:"finished_at"`
	Stats      composite.Stats        `json:"stats"`
	Top        []composite.RankedCoin `json:"top"`
}

// NewScanEvent trims a result to the websocket payload
func NewScanEvent(res *scan.Result) ScanEvent {
	top := res.Ranked
	if len(top) > eventTopCoins {
		top = top[:eventTopCoins]
	}
	return ScanEvent{
		Type:       "scan",
		ScanID:     res.ID,
		Strategy:   res.Strategy,
		FinishedAt: res.FinishedAt,
		Stats:      res.Stats,
		Top:        top,
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans scan events out to connected websocket clients. Clients that
// fall behind by more than sendBuffer messages are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *MetricsRegistry

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub; metrics may be nil
func NewHub(metrics *MetricsRegistry) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		metrics:  metrics,
		clients:  make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

// Broadcast sends v as JSON to every client
func (h *Hub) Broadcast(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("Dropping slow websocket client")
			h.removeLocked(c)
		}
	}
	return nil
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(n))
	}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked closes c's send channel once; caller holds h.mu
func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(len(h.clients)))
	}
}

// readPump discards inbound messages and keeps the pong deadline fresh
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
