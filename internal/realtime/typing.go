package realtime

import (
	"sync"

	"FleetTalk/entity"
)

// TypingBroadcaster fans ephemeral typing signals out to the subscribers of a
// channel, keyed by the resolved channel id so tenants never observe each
// other. Lossy by contract: nothing is stored, nothing is retried, and a
// missing "stopped typing" follow-up is undefined behavior for consumers.
type TypingBroadcaster struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]*typingSub
}

type typingSub struct {
	selfType string
	selfID   string
	fn       func(entity.TypingSignal)
}

func NewTypingBroadcaster() *TypingBroadcaster {
	return &TypingBroadcaster{
		subs: make(map[string]map[int]*typingSub),
	}
}

// Subscribe registers a listener for one channel. The subscriber never
// receives its own signals back. Returns an unsubscribe func.
func (t *TypingBroadcaster) Subscribe(channelID, selfType, selfID string, fn func(entity.TypingSignal)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	channel := t.subs[channelID]
	if channel == nil {
		channel = make(map[int]*typingSub)
		t.subs[channelID] = channel
	}
	id := t.next
	t.next++
	channel[id] = &typingSub{selfType: selfType, selfID: selfID, fn: fn}

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(channel, id)
		if len(channel) == 0 && t.subs[channelID] != nil {
			delete(t.subs, channelID)
		}
	}
}

// Publish delivers the signal to every subscriber of its channel except the
// originator. Best effort, fire and forget.
func (t *TypingBroadcaster) Publish(signal entity.TypingSignal) {
	t.mu.Lock()
	targets := make([]func(entity.TypingSignal), 0, len(t.subs[signal.ChannelID]))
	for _, sub := range t.subs[signal.ChannelID] {
		if sub.selfType == signal.UserType && sub.selfID == signal.UserID {
			continue
		}
		targets = append(targets, sub.fn)
	}
	t.mu.Unlock()

	for _, fn := range targets {
		fn(signal)
	}
}
