package repository

import (
	"FleetTalk/entity"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertMessage persists a chat message as the store adapter shaped it.
func (m *MongoDB) InsertMessage(msg *entity.ChatMessage) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	_, err = collection.InsertOne(m.ctx, msg)
	if err != nil {
		return fmt.Errorf("mongodb insert message: %w", err)
	}

	return nil
}

// MarkMessagesRead flips all unread messages of the given sender in a channel
// to read. Returns how many rows changed; a second call is a zero-row no-op.
func (m *MongoDB) MarkMessagesRead(channelID, senderType string, at time.Time) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)
	filter := bson.D{
		{Key: "channel_id", Value: channelID},
		{Key: "sender_type", Value: senderType},
		{Key: "is_read", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_read", Value: true},
		{Key: "read_at", Value: at},
	}}}

	result, err := collection.UpdateMany(m.ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mongodb mark messages read: %w", err)
	}

	return result.ModifiedCount, nil
}

// CountUnread counts the unread messages the given sender left in a channel.
func (m *MongoDB) CountUnread(channelID, senderType string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)
	filter := bson.D{
		{Key: "channel_id", Value: channelID},
		{Key: "sender_type", Value: senderType},
		{Key: "is_read", Value: false},
	}

	count, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongodb count unread: %w", err)
	}

	return count, nil
}

// GetChannelMessages returns message history for a channel, paginated
// (newest first).
func (m *MongoDB) GetChannelMessages(channelID string, limit, offset int) ([]entity.ChatMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{{Key: "channel_id", Value: channelID}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find messages: %w", err)
	}
	defer cursor.Close(m.ctx)

	var messages []entity.ChatMessage
	if err = cursor.All(m.ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode messages: %w", err)
	}

	return messages, nil
}
