package ws

import (
	"log/slog"
	"sync"

	"FleetTalk/entity"
	"FleetTalk/internal/realtime"
)

// SessionFactory builds the realtime chat facade for an authenticated
// participant session.
type SessionFactory interface {
	NewChatSession(session entity.Session) *realtime.Chat
}

// Event represents a WebSocket event sent to portal and booking-site clients.
type Event struct {
	Type string      `json:"type"` // "new_message", "typing", "read_receipt", "presence", "unread_count", "connection"
	Data interface{} `json:"data"`
}

// Outbound event types.
const (
	EventNewMessage  = "new_message"
	EventTyping      = "typing"
	EventReadReceipt = "read_receipt"
	EventPresence    = "presence"
	EventUnreadCount = "unread_count"
	EventConnection  = "connection"
)

// Hub maintains the set of active WebSocket clients.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's bookkeeping loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("client registered", slog.Int("clients", h.ClientCount()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("client unregistered", slog.Int("clients", h.ClientCount()))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
