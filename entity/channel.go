package entity

import "time"

// Participant types of a rental conversation. Every message, presence record
// and typing signal is attributed to exactly one of them.
const (
	PartyTenant   = "tenant"
	PartyCustomer = "customer"
)

// OpposingParty returns the other side of a conversation.
func OpposingParty(party string) string {
	if party == PartyTenant {
		return PartyCustomer
	}
	return PartyTenant
}

// Channel is a private conversation between one rental operator (tenant) and
// one customer. There is at most one channel per (tenant, customer) pair.
type Channel struct {
	ID            string     `json:"id" bson:"_id"`
	TenantID      string     `json:"tenant_id" bson:"tenant_id"`
	CustomerID    string     `json:"customer_id" bson:"customer_id"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" bson:"last_message_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// ChannelSummary is one row of the operator portal chat list.
type ChannelSummary struct {
	ChannelID   string    `json:"channel_id" bson:"channel_id"`
	CustomerID  string    `json:"customer_id" bson:"customer_id"`
	LastMessage string    `json:"last_message" bson:"last_message"`
	LastTime    time.Time `json:"last_time" bson:"last_time"`
	Unread      int       `json:"unread" bson:"unread"`
}

// Session identifies an authenticated realtime participant: an operator user
// acting for a tenant, or a customer on the booking site.
type Session struct {
	TenantID        string `json:"tenant_id"`
	ParticipantType string `json:"participant_type"`
	ParticipantID   string `json:"participant_id"`
}
