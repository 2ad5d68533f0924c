package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

// Pages served from other origins must not read pending request ids.
var upgrader = websocket.Upgrader{
	CheckOrigin: isLocalOrigin,
}

// Message is sent to websocket clients.
type Message struct {
	Type string           `json:"type"`
	Data monitor.Snapshot `json:"data"`
}

// Hub pushes every snapshot to connected websocket clients.
type Hub struct {
	current   func() monitor.Snapshot
	clients   map[*client]bool
	clientsMu sync.Mutex
	closed    bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// NewHub creates a hub. current provides the snapshot sent on connect.
func NewHub(current func() monitor.Snapshot) *Hub {
	return &Hub{
		current: current,
		clients: make(map[*client]bool),
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[hub] websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16), hub: h}

	h.clientsMu.Lock()
	if h.closed {
		h.clientsMu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	if data, err := encode(h.current()); err == nil {
		c.send <- data
	}
	h.clientsMu.Unlock()

	go c.writePump()
	go c.readPump()
}

// Publish sends snap to every client. Slow clients miss updates rather than
// block the daemon; the next snapshot supersedes the dropped one.
func (h *Hub) Publish(snap monitor.Snapshot) {
	data, err := encode(snap)
	if err != nil {
		log.Printf("[hub] failed to encode snapshot: %v", err)
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func encode(snap monitor.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Data: snap})
}

// readPump discards client messages and detects disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[hub] websocket read error: %v", err)
			}
			return
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
