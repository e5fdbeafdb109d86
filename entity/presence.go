package entity

import "time"

// PresenceRecord is a participant's live occupancy of a channel. It exists
// only while a subscription is open and is never persisted.
type PresenceRecord struct {
	ParticipantType string    `json:"participant_type"`
	ParticipantID   string    `json:"participant_id"`
	OnlineAt        time.Time `json:"online_at"`
}

// PresenceUpdate is emitted to listeners when an occupant of a channel
// appears, disappears, or is reported by a sync snapshot.
type PresenceUpdate struct {
	ChannelID       string    `json:"channel_id"`
	ParticipantType string    `json:"participant_type"`
	ParticipantID   string    `json:"participant_id"`
	IsOnline        bool      `json:"is_online"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}
