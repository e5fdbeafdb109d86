package entity

// TypingSignal is a transient typing-state broadcast for one channel.
// Fire-and-forget: no persistence, no TTL, no delivery guarantee.
type TypingSignal struct {
	ChannelID  string `json:"channel_id"`
	CustomerID string `json:"customer_id"`
	UserType   string `json:"user_type"`
	UserID     string `json:"user_id"`
	IsTyping   bool   `json:"is_typing"`
}
