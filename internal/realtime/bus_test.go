package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FleetTalk/entity"
	"FleetTalk/internal/realtime"
)

func startBus(t *testing.T, tenantID string, feed *fakeFeed, channels *fakeChannelRepo) *realtime.Bus {
	t.Helper()
	bus := realtime.NewBus(tenantID, feed, channels, discardLogger())
	bus.SetBackoff(time.Millisecond, 10*time.Millisecond)
	bus.Start()
	t.Cleanup(bus.Stop)
	require.Eventually(t, bus.IsConnected, time.Second, time.Millisecond)
	return bus
}

func collectMessages(bus *realtime.Bus) (func() []entity.ChatMessage, func()) {
	var mu sync.Mutex
	var got []entity.ChatMessage
	unsub := bus.OnNewMessage(func(msg entity.ChatMessage) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})
	return func() []entity.ChatMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]entity.ChatMessage(nil), got...)
	}, unsub
}

func TestBusDeliversTenantMessages(t *testing.T) {
	channels := newFakeChannelRepo()
	channels.seed("ch1", "t1", "c1")
	feed := newFakeFeed()
	bus := startBus(t, "t1", feed, channels)

	messages, _ := collectMessages(bus)
	feed.emit(entity.FeedEvent{Op: entity.FeedOpInsert, Message: entity.ChatMessage{
		ChannelID: "ch1", SenderType: entity.PartyCustomer, Content: "hi",
	}})

	require.Eventually(t, func() bool { return len(messages()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "hi", messages()[0].Content)
}

func TestBusDropsForeignTenantEvents(t *testing.T) {
	channels := newFakeChannelRepo()
	channels.seed("mine", "t1", "c1")
	channels.seed("theirs", "t2", "c1")
	feed := newFakeFeed()
	bus := startBus(t, "t1", feed, channels)

	messages, _ := collectMessages(bus)
	feed.emit(entity.FeedEvent{Op: entity.FeedOpInsert, Message: entity.ChatMessage{
		ChannelID: "theirs", Content: "foreign",
	}})
	feed.emit(entity.FeedEvent{Op: entity.FeedOpInsert, Message: entity.ChatMessage{
		ChannelID: "unknown", Content: "orphan",
	}})
	feed.emit(entity.FeedEvent{Op: entity.FeedOpInsert, Message: entity.ChatMessage{
		ChannelID: "mine", Content: "ours",
	}})

	require.Eventually(t, func() bool { return len(messages()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "ours", messages()[0].Content)
}

func TestBusInfersReaderFromSender(t *testing.T) {
	channels := newFakeChannelRepo()
	channels.seed("ch1", "t1", "c1")
	feed := newFakeFeed()
	bus := startBus(t, "t1", feed, channels)

	var mu sync.Mutex
	var receipts []entity.ReadReceipt
	bus.OnMessagesRead(func(r entity.ReadReceipt) {
		mu.Lock()
		receipts = append(receipts, r)
		mu.Unlock()
	})

	// a customer message flipping to read means the tenant read it
	feed.emit(entity.FeedEvent{Op: entity.FeedOpRead, Message: entity.ChatMessage{
		ChannelID: "ch1", SenderType: entity.PartyCustomer, IsRead: true,
	}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(receipts) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "ch1", receipts[0].ChannelID)
	assert.Equal(t, entity.PartyTenant, receipts[0].ReaderType)
}

func TestBusResubscribesAfterStreamDrop(t *testing.T) {
	channels := newFakeChannelRepo()
	channels.seed("ch1", "t1", "c1")
	feed := newFakeFeed()
	bus := startBus(t, "t1", feed, channels)

	messages, _ := collectMessages(bus)
	feed.dropStream()

	require.Eventually(t, func() bool { return feed.subscribeCount() >= 2 }, time.Second, time.Millisecond)
	require.Eventually(t, bus.IsConnected, time.Second, time.Millisecond)

	feed.emit(entity.FeedEvent{Op: entity.FeedOpInsert, Message: entity.ChatMessage{
		ChannelID: "ch1", Content: "after reconnect",
	}})
	require.Eventually(t, func() bool { return len(messages()) == 1 }, time.Second, time.Millisecond)
}

func TestBusRetriesFailedSubscribe(t *testing.T) {
	channels := newFakeChannelRepo()
	feed := newFakeFeed()
	feed.err = errors.New("feed unavailable")

	bus := realtime.NewBus("t1", feed, channels, discardLogger())
	bus.SetBackoff(time.Millisecond, 10*time.Millisecond)
	bus.Start()
	t.Cleanup(bus.Stop)

	require.Eventually(t, bus.IsConnected, time.Second, time.Millisecond)
	assert.Equal(t, 1, feed.subscribeCount())
}

func TestBusStopSettlesUnsubscribed(t *testing.T) {
	channels := newFakeChannelRepo()
	feed := newFakeFeed()
	bus := realtime.NewBus("t1", feed, channels, discardLogger())
	bus.SetBackoff(time.Millisecond, 10*time.Millisecond)

	assert.Equal(t, realtime.StateUnsubscribed, bus.State())
	bus.Start()
	require.Eventually(t, bus.IsConnected, time.Second, time.Millisecond)

	bus.Stop()
	assert.Equal(t, realtime.StateUnsubscribed, bus.State())
	assert.False(t, bus.IsConnected())
}

// detachedFeed never closes its stream, not even on ctx cancellation.
type detachedFeed struct {
	events chan entity.FeedEvent
}

func (f *detachedFeed) Subscribe(ctx context.Context) (<-chan entity.FeedEvent, error) {
	return f.events, nil
}

func TestBusStopWithUnclosedStream(t *testing.T) {
	feed := &detachedFeed{events: make(chan entity.FeedEvent)}
	bus := realtime.NewBus("t1", feed, newFakeChannelRepo(), discardLogger())
	bus.SetBackoff(time.Millisecond, 10*time.Millisecond)
	bus.Start()
	require.Eventually(t, bus.IsConnected, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		bus.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop blocked on a stream that ignores cancellation")
	}
	assert.Equal(t, realtime.StateUnsubscribed, bus.State())
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	channels := newFakeChannelRepo()
	channels.seed("ch1", "t1", "c1")
	feed := newFakeFeed()
	bus := startBus(t, "t1", feed, channels)

	kept, _ := collectMessages(bus)
	dropped, unsub := collectMessages(bus)
	unsub()

	feed.emit(entity.FeedEvent{Op: entity.FeedOpInsert, Message: entity.ChatMessage{
		ChannelID: "ch1", Content: "hi",
	}})

	require.Eventually(t, func() bool { return len(kept()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, dropped())
}
