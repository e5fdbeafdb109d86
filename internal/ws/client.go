package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
	"FleetTalk/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single WebSocket connection of one chat participant.
// It hosts that participant's realtime facade and bridges facade events to
// the socket.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	session entity.Session
	chat    *realtime.Chat
	unsubs  []func()
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// clientEvent represents an incoming WebSocket message from a client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// sendEvent marshals and enqueues an event for delivery. Events for a slow
// client are dropped rather than blocking the emitting goroutine.
func (c *Client) sendEvent(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.log.Warn("event dropped, slow client", slog.String("event", eventType))
	}
}

// shutdown detaches the facade and hands the connection back to the hub.
// Safe to call once per client; residual facade callbacks after detach are
// harmless no-ops.
func (c *Client) shutdown() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.chat.Close()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.hub.unregister <- c
	c.conn.Close()
}

// readPump pumps messages from the WebSocket connection into the facade.
// It handles ping/pong keepalive and detects disconnects.
func (c *Client) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.handleClientMessage(raw)
	}
}

// handleClientMessage parses one incoming frame and dispatches it to the
// facade. Malformed frames are logged and skipped.
func (c *Client) handleClientMessage(raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	switch event.Type {
	case "join":
		var data struct {
			CustomerID string `json:"customer_id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.CustomerID == "" {
			return
		}
		c.chat.JoinRoom(data.CustomerID)

	case "leave":
		var data struct {
			CustomerID string `json:"customer_id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.CustomerID == "" {
			return
		}
		c.chat.LeaveRoom(data.CustomerID)

	case "send":
		var data struct {
			CustomerID string                 `json:"customer_id"`
			Content    string                 `json:"content"`
			Metadata   map[string]interface{} `json:"metadata"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.CustomerID == "" || data.Content == "" {
			return
		}
		c.chat.SendMessage(data.CustomerID, data.Content, data.Metadata)

	case "bulk_send":
		var data struct {
			CustomerIDs []string `json:"customer_ids"`
			Content     string   `json:"content"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || len(data.CustomerIDs) == 0 || data.Content == "" {
			return
		}
		c.chat.SendBulkMessage(data.CustomerIDs, data.Content)

	case "typing":
		var data struct {
			CustomerID string `json:"customer_id"`
			IsTyping   bool   `json:"is_typing"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.CustomerID == "" {
			return
		}
		c.chat.SendTyping(data.CustomerID, data.IsTyping)

	case "mark_read":
		var data struct {
			ChannelID string `json:"channel_id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.ChannelID == "" {
			return
		}
		c.chat.MarkRead(data.ChannelID)
	}
}

// writePump pumps enqueued events to the WebSocket connection and pushes
// connectivity changes alongside the keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	lastConnected := c.chat.IsConnected()
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

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if connected := c.chat.IsConnected(); connected != lastConnected {
				lastConnected = connected
				c.sendEvent(EventConnection, map[string]bool{"connected": connected})
			}
		}
	}
}

// Authenticator validates a token and returns the session it belongs to.
type Authenticator interface {
	ValidateToken(token string) (*entity.Session, error)
}

// ServeWs handles WebSocket upgrade requests for chat participants.
// sendBuffer caps the per-client outbound queue; events beyond it are dropped.
func ServeWs(hub *Hub, auth Authenticator, factory SessionFactory, sendBuffer int, log *slog.Logger, w http.ResponseWriter, r *http.Request) {
	// Auth: read token from query param
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	chat := factory.NewChatSession(*session)

	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		session: *session,
		chat:    chat,
		log: log.With(
			slog.String("tenant_id", session.TenantID),
			slog.String("participant", session.ParticipantType+":"+session.ParticipantID),
		),
	}

	client.unsubs = []func(){
		chat.OnNewMessage(func(msg entity.ChatMessage) {
			client.sendEvent(EventNewMessage, msg)
		}),
		chat.OnTyping(func(signal entity.TypingSignal) {
			client.sendEvent(EventTyping, signal)
		}),
		chat.OnMessagesRead(func(receipt entity.ReadReceipt) {
			client.sendEvent(EventReadReceipt, receipt)
		}),
		chat.OnUnreadCount(func(count entity.UnreadCount) {
			client.sendEvent(EventUnreadCount, count)
		}),
		chat.OnPresenceUpdate(func(update entity.PresenceUpdate) {
			client.sendEvent(EventPresence, update)
		}),
	}

	chat.Start()
	hub.register <- client

	client.sendEvent(EventConnection, map[string]bool{"connected": chat.IsConnected()})

	go client.writePump()
	go client.readPump()
}
