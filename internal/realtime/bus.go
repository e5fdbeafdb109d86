package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
)

// Bus subscription states.
const (
	StateUnsubscribed int32 = iota
	StateSubscribing
	StateSubscribed
	StateReconnecting
)

// ChangeFeed delivers message-store change events. The returned channel
// closes when the underlying stream dies or ctx is cancelled; the consumer
// owns resubscription. The bus stops draining on cancellation either way.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan entity.FeedEvent, error)
}

// ChannelLookup resolves channel ownership for tenant filtering.
type ChannelLookup interface {
	GetChannel(channelID string) (*entity.Channel, error)
}

// Bus is the tenant-wide live event stream: one subscription per operator
// session, regardless of how many conversations the tenant has. The feed is
// not pre-filtered by tenant, so every event is validated against the channel
// directory before dispatch; foreign-tenant events are dropped silently.
//
// Events published while the bus is resubscribing are lost. The underlying
// feed is not assumed to replay them.
type Bus struct {
	tenantID string
	feed     ChangeFeed
	channels ChannelLookup
	log      *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}

	ownerMu sync.Mutex
	owners  map[string]string // channelID -> tenantID, ownership never changes

	onMessage listenerSet[entity.ChatMessage]
	onRead    listenerSet[entity.ReadReceipt]
}

func NewBus(tenantID string, feed ChangeFeed, channels ChannelLookup, log *slog.Logger) *Bus {
	return &Bus{
		tenantID:   tenantID,
		feed:       feed,
		channels:   channels,
		log:        log.With(sl.Module("realtime.bus"), slog.String("tenant_id", tenantID)),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		owners:     make(map[string]string),
	}
}

// SetBackoff overrides the resubscribe backoff window.
func (b *Bus) SetBackoff(min, max time.Duration) {
	if min > 0 {
		b.minBackoff = min
	}
	if max >= b.minBackoff {
		b.maxBackoff = max
	}
}

// Start opens the subscription loop. It returns immediately; the loop keeps
// resubscribing until Stop.
func (b *Bus) Start() {
	if b.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.run(ctx)
}

// Stop tears the subscription down and waits for the loop to exit.
func (b *Bus) Stop() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.cancel = nil
}

// IsConnected reports whether the tenant-wide subscription is live. Sends
// must not be blocked on it.
func (b *Bus) IsConnected() bool {
	return b.state.Load() == StateSubscribed
}

// State returns the current subscription state.
func (b *Bus) State() int32 {
	return b.state.Load()
}

// OnNewMessage registers a listener for inserted messages on any channel of
// the tenant. Returns an unsubscribe func.
func (b *Bus) OnNewMessage(fn func(entity.ChatMessage)) func() {
	return b.onMessage.add(fn)
}

// OnMessagesRead registers a listener for read transitions. The reader is
// inferred as the opposite of the message's sender.
func (b *Bus) OnMessagesRead(fn func(entity.ReadReceipt)) func() {
	return b.onRead.add(fn)
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)

	backoff := b.minBackoff
	first := true

	for {
		if first {
			b.state.Store(StateSubscribing)
			first = false
		} else {
			b.state.Store(StateReconnecting)
		}

		events, err := b.feed.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.state.Store(StateUnsubscribed)
				return
			}
			b.log.Warn("feed subscribe failed", sl.Err(err))
			if !sleep(ctx, backoff) {
				b.state.Store(StateUnsubscribed)
				return
			}
			backoff = min(backoff*2, b.maxBackoff)
			continue
		}

		b.state.Store(StateSubscribed)
		backoff = b.minBackoff

		b.consume(ctx, events)

		if ctx.Err() != nil {
			b.state.Store(StateUnsubscribed)
			return
		}
		b.log.Warn("feed stream closed, resubscribing")
	}
}

// consume drains the stream until it closes or ctx is cancelled. Stop must
// never depend on the feed honoring cancellation.
func (b *Bus) consume(ctx context.Context, events <-chan entity.FeedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			b.dispatch(event)
		}
	}
}

func (b *Bus) dispatch(event entity.FeedEvent) {
	owner, ok := b.ownerOf(event.Message.ChannelID)
	if !ok || owner != b.tenantID {
		return
	}

	switch event.Op {
	case entity.FeedOpInsert:
		b.onMessage.emit(event.Message)
	case entity.FeedOpRead:
		b.onRead.emit(entity.ReadReceipt{
			ChannelID:  event.Message.ChannelID,
			ReaderType: entity.OpposingParty(event.Message.SenderType),
		})
	}
}

func (b *Bus) ownerOf(channelID string) (string, bool) {
	b.ownerMu.Lock()
	owner, ok := b.owners[channelID]
	b.ownerMu.Unlock()
	if ok {
		return owner, true
	}

	channel, err := b.channels.GetChannel(channelID)
	if err != nil || channel == nil {
		if err != nil {
			b.log.Debug("channel ownership lookup failed",
				slog.String("channel_id", channelID),
				sl.Err(err),
			)
		}
		return "", false
	}

	b.ownerMu.Lock()
	b.owners[channelID] = channel.TenantID
	b.ownerMu.Unlock()
	return channel.TenantID, true
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
