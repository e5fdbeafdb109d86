package realtime_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"FleetTalk/entity"
	"FleetTalk/internal/realtime"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pairKey(tenantID, customerID string) string {
	return tenantID + "|" + customerID
}

// fakeChannelRepo is an in-memory ChannelRepository.
type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[string]*entity.Channel // pairKey -> channel
	byID     map[string]*entity.Channel

	findErr   error
	insertErr error
	// findErrFor fails lookups for specific customer ids only
	findErrFor map[string]error
	// hideUntilInsert makes lookups miss seeded channels until an insert
	// collides with one, mimicking a creation race lost to another writer
	hideUntilInsert bool

	inserts int
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{
		channels:   make(map[string]*entity.Channel),
		byID:       make(map[string]*entity.Channel),
		findErrFor: make(map[string]error),
	}
}

func (f *fakeChannelRepo) FindChannel(tenantID, customerID string) (*entity.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if err := f.findErrFor[customerID]; err != nil {
		return nil, err
	}
	if f.hideUntilInsert {
		return nil, nil
	}
	channel, ok := f.channels[pairKey(tenantID, customerID)]
	if !ok {
		return nil, nil
	}
	copied := *channel
	return &copied, nil
}

func (f *fakeChannelRepo) InsertChannel(channel *entity.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	key := pairKey(channel.TenantID, channel.CustomerID)
	if _, ok := f.channels[key]; ok {
		f.hideUntilInsert = false
		return realtime.ErrChannelExists
	}
	copied := *channel
	f.channels[key] = &copied
	f.byID[channel.ID] = &copied
	f.inserts++
	return nil
}

func (f *fakeChannelRepo) GetChannel(channelID string) (*entity.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.byID[channelID]
	if !ok {
		return nil, nil
	}
	copied := *channel
	return &copied, nil
}

func (f *fakeChannelRepo) seed(id, tenantID, customerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel := &entity.Channel{ID: id, TenantID: tenantID, CustomerID: customerID, UpdatedAt: time.Now()}
	f.channels[pairKey(tenantID, customerID)] = channel
	f.byID[id] = channel
}

// fakeMessageRepo is an in-memory MessageRepository.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.ChatMessage
	touched  map[string]time.Time

	insertErr error
	touchErr  error
	markErr   error
	countErr  error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{touched: make(map[string]time.Time)}
}

func (f *fakeMessageRepo) InsertMessage(msg *entity.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	copied := *msg
	f.messages = append(f.messages, &copied)
	return nil
}

func (f *fakeMessageRepo) MarkMessagesRead(channelID, senderType string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return 0, f.markErr
	}
	var changed int64
	for _, msg := range f.messages {
		if msg.ChannelID == channelID && msg.SenderType == senderType && !msg.IsRead {
			msg.IsRead = true
			readAt := at
			msg.ReadAt = &readAt
			changed++
		}
	}
	return changed, nil
}

func (f *fakeMessageRepo) CountUnread(channelID, senderType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	var count int64
	for _, msg := range f.messages {
		if msg.ChannelID == channelID && msg.SenderType == senderType && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageRepo) TouchChannel(channelID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched[channelID] = at
	return nil
}

func (f *fakeMessageRepo) byChannel(channelID string) []entity.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ChatMessage
	for _, msg := range f.messages {
		if msg.ChannelID == channelID {
			out = append(out, *msg)
		}
	}
	return out
}

// fakeFeed is a scriptable ChangeFeed. Each Subscribe call hands out a fresh
// stream; closing the stream simulates a transport drop.
type fakeFeed struct {
	mu      sync.Mutex
	subs    int
	current chan entity.FeedEvent
	err     error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{}
}

func (f *fakeFeed) Subscribe(ctx context.Context) (<-chan entity.FeedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		err := f.err
		f.err = nil
		return nil, err
	}
	f.subs++
	stream := make(chan entity.FeedEvent, 16)
	f.current = stream

	// like the real change stream, close the channel when ctx ends
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.current == stream {
			close(stream)
			f.current = nil
		}
	}()

	return stream, nil
}

func (f *fakeFeed) emit(event entity.FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current <- event
	}
}

func (f *fakeFeed) dropStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		close(f.current)
		f.current = nil
	}
}

func (f *fakeFeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs
}
