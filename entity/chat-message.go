package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is a single message inside a channel. Messages are created
// unread and mutate only once, when the opposing party marks them read.
type ChatMessage struct {
	ID         primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	ChannelID  string                 `json:"channel_id" bson:"channel_id"`
	SenderType string                 `json:"sender_type" bson:"sender_type"` // "tenant" | "customer"
	SenderID   string                 `json:"sender_id" bson:"sender_id"`
	Content    string                 `json:"content" bson:"content"`
	IsRead     bool                   `json:"is_read" bson:"is_read"`
	ReadAt     *time.Time             `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at" bson:"created_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
}
