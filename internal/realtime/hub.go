// Package realtime fans server events out to connected websocket clients.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is the JSON frame written to clients.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	EventConnected           = "connected"
	EventAppointmentComplete = "appointment_complete"
)

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer
	mu sync.Mutex
}

func (c *client) write(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(ev)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHub accepts connections whose Origin is listed in origins. A "*" entry
// or an empty Origin header is always accepted.
func NewHub(origins []string, log *logger.Logger) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast writes ev to every client and returns how many received it.
// Clients that fail the write are dropped.
func (h *Hub) Broadcast(ev Event) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(ev); err != nil {
			h.log.WithComponent("realtime").WithError(err).Warn("broadcast write failed")
			h.remove(c)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entry := h.log.WithContext(r.Context()).WithField("component", "realtime")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		entry.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &client{conn: conn}
	if err := c.write(Event{Type: EventConnected, Message: "WebSocket connection established"}); err != nil {
		conn.Close()
		return
	}
	h.add(c)
	defer h.remove(c)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				entry.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
	}
}
