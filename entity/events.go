package entity

// Operations reported by the message change feed.
const (
	FeedOpInsert = "insert"
	FeedOpRead   = "read"
)

// FeedEvent is one change-feed notification about the messages collection:
// either a freshly inserted message or a message that became read.
type FeedEvent struct {
	Op      string      `json:"op"`
	Message ChatMessage `json:"message"`
}

// ReadReceipt tells listeners that the unread messages of a channel were
// consumed. ReaderType is inferred as the opposite of the messages' sender.
type ReadReceipt struct {
	ChannelID  string `json:"channel_id"`
	ReaderType string `json:"reader_type"`
}

// UnreadCount is emitted once per room join with the number of messages the
// opposing party sent that are still unread.
type UnreadCount struct {
	ChannelID  string `json:"channel_id"`
	CustomerID string `json:"customer_id"`
	Count      int64  `json:"count"`
}
