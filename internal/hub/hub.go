package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/foxseedlab/tsunagin/internal/auth"
	"github.com/gorilla/websocket"
)

// Scope selects which connected clients receive a broadcast.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeManagers
)

const clientSendQueueSize = 64

// Client is one connected socket registered with the hub. Identity and role
// are empty until the connection authenticates.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	username string
	role     auth.Role
	closed   bool
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, clientSendQueueSize),
	}
}

func (c *Client) SetIdentity(username string, role auth.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.role = role
}

func (c *Client) Role() auth.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Deliver serializes one event and queues it for this client only.
func (c *Client) Deliver(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal client event", "error", err)
		return
	}
	c.enqueue(data)
}

// enqueue reports false when the client's queue is full or closed; the
// caller treats that as a per-recipient failure and moves on.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// WritePump drains the send queue onto the socket. It returns when the hub
// removes the client or the socket write fails.
func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Debug("client write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Broadcaster is the fan-out surface the relay publishes through.
type Broadcaster interface {
	Broadcast(event any, scope Scope)
}

// Hub is the process-wide registry of connected clients. Membership changes
// on connect/disconnect only; broadcasts iterate a snapshot of it.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func New() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Remove drops the client from the registry and closes its send queue.
// Safe to call more than once.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.closeSend()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast serializes the event once and queues it to every client matching
// the scope. A full or closed per-client queue is skipped, never aborts the
// rest of the fan-out.
func (h *Hub) Broadcast(event any, scope Scope) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal broadcast event", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if scope == ScopeManagers && c.Role() != auth.RoleManager {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			slog.Warn("dropping broadcast for slow client", "username", c.Username())
		}
	}
}
