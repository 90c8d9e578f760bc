package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pageturner/internal/app"
)

// Event hub limits.
const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is a message pushed to websocket clients.
type Event struct {
	Type   string      `json:"type"`
	Turn   *app.Turn   `json:"turn,omitempty"`
	Status *app.Status `json:"status,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub broadcasts turns to websocket clients. It implements
// app.Observer; OnTurn never blocks on a slow client.
type EventHub struct {
	status  StatusSource
	clients map[*client]struct{}
	mu      sync.RWMutex
	closed  bool
}

// NewEventHub creates an EventHub. If status is non-nil, each new client
// first receives a status event.
func NewEventHub(status StatusSource) *EventHub {
	return &EventHub{
		status:  status,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writeLoop()

	if h.status != nil {
		st := h.status.Status()
		if msg, err := json.Marshal(Event{Type: "status", Status: &st}); err == nil {
			c.send <- msg
		}
	}

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// OnTurn pushes turn to every client.
func (h *EventHub) OnTurn(turn app.Turn) {
	msg, err := json.Marshal(Event{Type: "turn", Turn: &turn})
	if err != nil {
		log.Printf("failed to encode turn event: %v", err)
		return
	}
	h.broadcast(msg)
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *EventHub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *EventHub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	close(c.send)
}

// broadcast queues msg for every client, dropping it for clients whose
// buffer is full.
func (h *EventHub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("dropping event for slow websocket client %s", c.conn.RemoteAddr())
		}
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
