package realtime

import (
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
)

// MessageRepository is the slice of the message store the adapter writes.
type MessageRepository interface {
	InsertMessage(msg *entity.ChatMessage) error
	MarkMessagesRead(channelID, senderType string, at time.Time) (int64, error)
	CountUnread(channelID, senderType string) (int64, error)
	TouchChannel(channelID string, at time.Time) error
}

// Store is the sole writer of message rows. Failures are logged and degrade
// to "nothing happened"; nothing crosses this boundary as a panic or error.
type Store struct {
	repo MessageRepository
	log  *slog.Logger
}

func NewStore(repo MessageRepository, log *slog.Logger) *Store {
	return &Store{
		repo: repo,
		log:  log.With(sl.Module("realtime.store")),
	}
}

// Send persists an outbound message and bumps the owning channel's ordering
// timestamps. Returns nil when the insert failed. The channel touch is best
// effort: it only affects chat-list ordering, not delivery.
func (s *Store) Send(channelID, senderType, senderID, content string, metadata map[string]interface{}) *entity.ChatMessage {
	msg := &entity.ChatMessage{
		ID:         primitive.NewObjectID(),
		ChannelID:  channelID,
		SenderType: senderType,
		SenderID:   senderID,
		Content:    content,
		IsRead:     false,
		CreatedAt:  time.Now().UTC(),
		Metadata:   metadata,
	}

	if err := s.repo.InsertMessage(msg); err != nil {
		s.log.Error("message insert failed",
			slog.String("channel_id", channelID),
			sl.Err(err),
		)
		return nil
	}

	if err := s.repo.TouchChannel(channelID, msg.CreatedAt); err != nil {
		s.log.Warn("channel touch failed",
			slog.String("channel_id", channelID),
			sl.Err(err),
		)
	}

	return msg
}

// MarkRead flips every unread message the opposing party sent in the channel.
// Messages the reader sent itself are never altered. A repeat call changes
// zero rows and is not an error.
func (s *Store) MarkRead(channelID, readerType string) {
	changed, err := s.repo.MarkMessagesRead(channelID, entity.OpposingParty(readerType), time.Now().UTC())
	if err != nil {
		s.log.Error("mark read failed",
			slog.String("channel_id", channelID),
			slog.String("reader_type", readerType),
			sl.Err(err),
		)
		return
	}

	if changed > 0 {
		s.log.Debug("messages marked read",
			slog.String("channel_id", channelID),
			slog.Int64("messages", changed),
		)
	}
}

// Unread counts the messages the opposing party left unread in the channel.
// Returns 0 on error.
func (s *Store) Unread(channelID, readerType string) int64 {
	count, err := s.repo.CountUnread(channelID, entity.OpposingParty(readerType))
	if err != nil {
		s.log.Error("unread count failed",
			slog.String("channel_id", channelID),
			sl.Err(err),
		)
		return 0
	}
	return count
}
