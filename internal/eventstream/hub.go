// Package eventstream pushes fired application events to web clients over
// WebSocket. Clients choose the events they receive by sending add/remove
// messages; the hub forwards those to a Listener so the watched sources
// follow the union of client interest.
package eventstream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sysbridge/internal/events"
	"sysbridge/pkg/types"
)

const (
	sendBuffer   = 64
	readLimit    = 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Listener starts and stops event listeners on behalf of clients.
type Listener interface {
	Add(name string) error
	Remove(name string)
}

type outbound struct {
	event string
	data  []byte
}

// Hub manages WebSocket clients and fans out published events.
type Hub struct {
	listener Listener
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	broadcast  chan outbound
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	subs map[string]bool
}

// NewHub returns a hub forwarding client interest to l. checkOrigin may be
// nil to accept every origin.
func NewHub(l Listener, checkOrigin func(*http.Request) bool, log zerolog.Logger) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		listener:   l,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: checkOrigin},
		log:        log,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

var _ events.Publisher = (*Hub)(nil)

// Run is the hub's event loop; it returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("client", c.id).Int("total_clients", n).Msg("websocket client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.release(c)
			h.log.Debug().Str("client", c.id).Int("total_clients", n).Msg("websocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if !c.subscribed(msg.event) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// slow client, drop it
					delete(h.clients, c)
					close(c.send)
					h.log.Warn().Str("client", c.id).Msg("websocket client too slow, dropped")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues e for every client subscribed to its name.
func (h *Hub) Publish(e events.Event) {
	data, err := json.Marshal(types.EventMessage{Event: e.Name, Payload: e.Payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", e.Name).Msg("failed to marshal websocket event")
		return
	}
	select {
	case h.broadcast <- outbound{event: e.Name, data: data}:
	default:
		h.log.Warn().Str("event", e.Name).Msg("websocket broadcast channel full, dropping event")
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		subs: make(map[string]bool),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// release drops every listener reference held by c.
func (h *Hub) release(c *client) {
	c.mu.Lock()
	names := make([]string, 0, len(c.subs))
	for n := range c.subs {
		names = append(names, n)
	}
	c.subs = map[string]bool{}
	c.mu.Unlock()
	for _, n := range names {
		h.listener.Remove(n)
	}
}

func (c *client) subscribed(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[event]
}

func (c *client) handle(msg types.ClientMessage) types.ClientAck {
	ack := types.ClientAck{Action: msg.Action, Event: msg.Event}
	c.mu.Lock()
	has := c.subs[msg.Event]
	c.mu.Unlock()
	switch msg.Action {
	case "add":
		if !has {
			if err := c.hub.listener.Add(msg.Event); err != nil {
				ack.Error = err.Error()
				return ack
			}
			c.mu.Lock()
			c.subs[msg.Event] = true
			c.mu.Unlock()
		}
		ack.OK = true
	case "remove":
		if has {
			c.mu.Lock()
			delete(c.subs, msg.Event)
			c.mu.Unlock()
			c.hub.listener.Remove(msg.Event)
		}
		ack.OK = true
	default:
		ack.Error = "unknown action: " + msg.Action
	}
	return ack
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.hub.release(c)
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var msg types.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("websocket read")
			}
			return
		}
		ack := c.handle(msg)
		data, err := json.Marshal(ack)
		if err != nil {
			continue
		}
		c.hub.mu.RLock()
		_, live := c.hub.clients[c]
		if live {
			select {
			case c.send <- data:
			default:
			}
		}
		c.hub.mu.RUnlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
