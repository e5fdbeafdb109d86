package realtime

import (
	"log/slog"
	"sync"
	"time"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
)

// Chat is the realtime surface of one participant session: an operator user
// in the portal or a customer on the booking site. It owns one tenant-wide
// Bus subscription and a registry of joined rooms keyed by customer id.
//
// Every command degrades to "event doesn't happen" on failure. Nothing
// crosses this boundary as a panic or error.
type Chat struct {
	tenantID string
	selfType string
	selfID   string

	directory *Directory
	store     *Store
	bus       *Bus
	typing    *TypingBroadcaster
	presence  *PresenceTracker
	log       *slog.Logger

	mu    sync.Mutex
	rooms map[string]*room

	onUnread   listenerSet[entity.UnreadCount]
	onTyping   listenerSet[entity.TypingSignal]
	onPresence listenerSet[entity.PresenceUpdate]
}

type room struct {
	channelID string
	unsubs    []func()
}

func NewChat(session entity.Session, directory *Directory, store *Store, bus *Bus, typing *TypingBroadcaster, presence *PresenceTracker, log *slog.Logger) *Chat {
	return &Chat{
		tenantID:  session.TenantID,
		selfType:  session.ParticipantType,
		selfID:    session.ParticipantID,
		directory: directory,
		store:     store,
		bus:       bus,
		typing:    typing,
		presence:  presence,
		log: log.With(
			sl.Module("realtime.chat"),
			slog.String("tenant_id", session.TenantID),
			slog.String("participant", session.ParticipantType+":"+session.ParticipantID),
		),
		rooms: make(map[string]*room),
	}
}

// Start opens the tenant-wide bus subscription.
func (c *Chat) Start() {
	c.bus.Start()
}

// Close leaves every joined room and tears the bus subscription down.
func (c *Chat) Close() {
	c.mu.Lock()
	customers := make([]string, 0, len(c.rooms))
	for customerID := range c.rooms {
		customers = append(customers, customerID)
	}
	c.mu.Unlock()

	for _, customerID := range customers {
		c.LeaveRoom(customerID)
	}
	c.bus.Stop()
}

// JoinRoom opens the conversation with a customer: resolves or creates the
// channel, emits the initial unread count, and opens presence and typing
// subscriptions. Idempotent; a second join for the same customer is a no-op.
func (c *Chat) JoinRoom(customerID string) {
	c.mu.Lock()
	if _, ok := c.rooms[customerID]; ok {
		c.mu.Unlock()
		return
	}

	channelID := c.directory.ResolveOrCreate(c.tenantID, customerID)
	if channelID == "" {
		c.mu.Unlock()
		c.log.Warn("room join aborted, no channel", slog.String("customer_id", customerID))
		return
	}

	count := c.store.Unread(channelID, c.selfType)

	r := &room{channelID: channelID}
	r.unsubs = append(r.unsubs,
		c.typing.Subscribe(channelID, c.selfType, c.selfID, c.onTyping.emit),
		c.presence.Subscribe(channelID, c.selfType, c.selfID, c.onPresence.emit),
	)
	c.presence.Track(channelID, entity.PresenceRecord{
		ParticipantType: c.selfType,
		ParticipantID:   c.selfID,
		OnlineAt:        time.Now().UTC(),
	})
	c.rooms[customerID] = r
	c.mu.Unlock()

	// emitted outside the lock so a listener may call back into the facade
	c.onUnread.emit(entity.UnreadCount{
		ChannelID:  channelID,
		CustomerID: customerID,
		Count:      count,
	})
}

// LeaveRoom untracks presence and tears down the room's subscriptions.
// Idempotent if already left.
func (c *Chat) LeaveRoom(customerID string) {
	c.mu.Lock()
	r, ok := c.rooms[customerID]
	if ok {
		delete(c.rooms, customerID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	c.presence.Untrack(r.channelID, c.selfType, c.selfID)
	for _, unsub := range r.unsubs {
		unsub()
	}
}

// SendMessage resolves or creates the channel and persists the message.
// Attempted regardless of connectivity; a resolution failure drops the
// message silently (logged).
func (c *Chat) SendMessage(customerID, content string, metadata map[string]interface{}) {
	channelID := c.directory.ResolveOrCreate(c.tenantID, customerID)
	if channelID == "" {
		c.log.Warn("message dropped, no channel", slog.String("customer_id", customerID))
		return
	}
	c.store.Send(channelID, c.selfType, c.selfID, content, metadata)
}

// SendBulkMessage sends the content to each customer in turn. A failure for
// one recipient is logged and does not abort the remaining sends; there is
// no rollback.
func (c *Chat) SendBulkMessage(customerIDs []string, content string) {
	for _, customerID := range customerIDs {
		channelID := c.directory.ResolveOrCreate(c.tenantID, customerID)
		if channelID == "" {
			c.log.Warn("bulk send skipped recipient", slog.String("customer_id", customerID))
			continue
		}
		if msg := c.store.Send(channelID, c.selfType, c.selfID, content, map[string]interface{}{"bulk": true}); msg == nil {
			c.log.Warn("bulk send failed for recipient", slog.String("customer_id", customerID))
		}
	}
}

// MarkRead flips the opposing party's unread messages in the channel.
func (c *Chat) MarkRead(channelID string) {
	c.store.MarkRead(channelID, c.selfType)
}

// SendTyping broadcasts the typing state for a customer's channel. No-op when
// the room is not currently joined.
func (c *Chat) SendTyping(customerID string, isTyping bool) {
	c.mu.Lock()
	r, ok := c.rooms[customerID]
	c.mu.Unlock()
	if !ok {
		return
	}

	c.typing.Publish(entity.TypingSignal{
		ChannelID:  r.channelID,
		CustomerID: customerID,
		UserType:   c.selfType,
		UserID:     c.selfID,
		IsTyping:   isTyping,
	})
}

// IsConnected mirrors the bus subscription state. UI may show a connectivity
// indicator off it but must not gate sends on it.
func (c *Chat) IsConnected() bool {
	return c.bus.IsConnected()
}

// OnNewMessage registers a listener for new messages. Operator sessions see
// every channel of the tenant; customer sessions only their own rooms.
func (c *Chat) OnNewMessage(fn func(entity.ChatMessage)) func() {
	return c.bus.OnNewMessage(func(msg entity.ChatMessage) {
		if !c.visible(msg.ChannelID) {
			return
		}
		fn(msg)
	})
}

// OnMessagesRead registers a listener for read receipts.
func (c *Chat) OnMessagesRead(fn func(entity.ReadReceipt)) func() {
	return c.bus.OnMessagesRead(func(receipt entity.ReadReceipt) {
		if !c.visible(receipt.ChannelID) {
			return
		}
		fn(receipt)
	})
}

// OnUnreadCount registers a listener for the initial unread count emitted on
// each room join.
func (c *Chat) OnUnreadCount(fn func(entity.UnreadCount)) func() {
	return c.onUnread.add(fn)
}

// OnTyping registers a listener for typing signals of joined rooms.
func (c *Chat) OnTyping(fn func(entity.TypingSignal)) func() {
	return c.onTyping.add(fn)
}

// OnPresenceUpdate registers a listener for presence transitions of joined
// rooms.
func (c *Chat) OnPresenceUpdate(fn func(entity.PresenceUpdate)) func() {
	return c.onPresence.add(fn)
}

// visible bounds what a session may observe from the tenant-wide bus: the
// tenant side sees all of its channels, a customer only the rooms it joined.
func (c *Chat) visible(channelID string) bool {
	if c.selfType == entity.PartyTenant {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rooms {
		if r.channelID == channelID {
			return true
		}
	}
	return false
}
