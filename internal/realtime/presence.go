package realtime

import (
	"sync"
	"time"

	"FleetTalk/entity"
)

// PresenceTracker keeps the live occupancy of every channel and notifies
// subscribers about three transitions: the sync snapshot on (re)join, a new
// occupant joining, and an occupant leaving. Nothing is persisted; occupancy
// disappears with its subscription.
//
// Self-exclusion invariant: a participant never receives presence updates
// describing itself.
type PresenceTracker struct {
	mu        sync.Mutex
	next      int
	occupants map[string]map[string]entity.PresenceRecord
	subs      map[string]map[int]*presenceSub
}

type presenceSub struct {
	selfType string
	selfID   string
	fn       func(entity.PresenceUpdate)
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		occupants: make(map[string]map[string]entity.PresenceRecord),
		subs:      make(map[string]map[int]*presenceSub),
	}
}

func occupantKey(participantType, participantID string) string {
	return participantType + ":" + participantID
}

// Subscribe registers a listener for a channel's presence scope and delivers
// the sync snapshot: every current occupant other than the subscriber,
// reported online. Returns an unsubscribe func.
func (p *PresenceTracker) Subscribe(channelID, selfType, selfID string, fn func(entity.PresenceUpdate)) func() {
	p.mu.Lock()

	channel := p.subs[channelID]
	if channel == nil {
		channel = make(map[int]*presenceSub)
		p.subs[channelID] = channel
	}
	id := p.next
	p.next++
	channel[id] = &presenceSub{selfType: selfType, selfID: selfID, fn: fn}

	snapshot := make([]entity.PresenceRecord, 0, len(p.occupants[channelID]))
	for _, record := range p.occupants[channelID] {
		if record.ParticipantType == selfType && record.ParticipantID == selfID {
			continue
		}
		snapshot = append(snapshot, record)
	}
	p.mu.Unlock()

	for _, record := range snapshot {
		fn(entity.PresenceUpdate{
			ChannelID:       channelID,
			ParticipantType: record.ParticipantType,
			ParticipantID:   record.ParticipantID,
			IsOnline:        true,
			LastSeenAt:      record.OnlineAt,
		})
	}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(channel, id)
		if len(channel) == 0 && p.subs[channelID] != nil {
			delete(p.subs, channelID)
		}
	}
}

// Track announces a participant in a channel and reports the join to every
// other subscriber.
func (p *PresenceTracker) Track(channelID string, record entity.PresenceRecord) {
	if record.OnlineAt.IsZero() {
		record.OnlineAt = time.Now().UTC()
	}

	p.mu.Lock()
	channel := p.occupants[channelID]
	if channel == nil {
		channel = make(map[string]entity.PresenceRecord)
		p.occupants[channelID] = channel
	}
	channel[occupantKey(record.ParticipantType, record.ParticipantID)] = record
	targets := p.targetsLocked(channelID, record.ParticipantType, record.ParticipantID)
	p.mu.Unlock()

	update := entity.PresenceUpdate{
		ChannelID:       channelID,
		ParticipantType: record.ParticipantType,
		ParticipantID:   record.ParticipantID,
		IsOnline:        true,
		LastSeenAt:      record.OnlineAt,
	}
	for _, fn := range targets {
		fn(update)
	}
}

// Untrack removes a participant and reports the leave to the remaining
// subscribers. Last-seen is approximated as the detection time; true
// last-seen is not tracked. A repeat call is a no-op.
func (p *PresenceTracker) Untrack(channelID, participantType, participantID string) {
	key := occupantKey(participantType, participantID)

	p.mu.Lock()
	channel := p.occupants[channelID]
	if _, ok := channel[key]; !ok {
		p.mu.Unlock()
		return
	}
	delete(channel, key)
	if len(channel) == 0 {
		delete(p.occupants, channelID)
	}
	targets := p.targetsLocked(channelID, participantType, participantID)
	p.mu.Unlock()

	update := entity.PresenceUpdate{
		ChannelID:       channelID,
		ParticipantType: participantType,
		ParticipantID:   participantID,
		IsOnline:        false,
		LastSeenAt:      time.Now().UTC(),
	}
	for _, fn := range targets {
		fn(update)
	}
}

// Occupants returns the current occupancy snapshot of a channel.
func (p *PresenceTracker) Occupants(channelID string) []entity.PresenceRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := make([]entity.PresenceRecord, 0, len(p.occupants[channelID]))
	for _, record := range p.occupants[channelID] {
		records = append(records, record)
	}
	return records
}

// targetsLocked collects the callbacks of every subscriber except the
// participant the update is about. Callers hold p.mu.
func (p *PresenceTracker) targetsLocked(channelID, participantType, participantID string) []func(entity.PresenceUpdate) {
	targets := make([]func(entity.PresenceUpdate), 0, len(p.subs[channelID]))
	for _, sub := range p.subs[channelID] {
		if sub.selfType == participantType && sub.selfID == participantID {
			continue
		}
		targets = append(targets, sub.fn)
	}
	return targets
}
