package repository

import (
	"FleetTalk/entity"
	"FleetTalk/internal/realtime"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FindChannel looks up the channel of a (tenant, customer) pair.
// Returns nil without error when no channel exists yet.
func (m *MongoDB) FindChannel(tenantID, customerID string) (*entity.Channel, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(channelsCollection)
	filter := bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "customer_id", Value: customerID}}

	var channel entity.Channel
	err = collection.FindOne(m.ctx, filter).Decode(&channel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb find channel: %w", err)
	}

	return &channel, nil
}

// GetChannel fetches a channel by id. Returns nil without error when absent.
func (m *MongoDB) GetChannel(channelID string) (*entity.Channel, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(channelsCollection)
	filter := bson.D{{Key: "_id", Value: channelID}}

	var channel entity.Channel
	err = collection.FindOne(m.ctx, filter).Decode(&channel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb get channel: %w", err)
	}

	return &channel, nil
}

// InsertChannel creates a channel row. A concurrent creator losing the race
// on the unique (tenant_id, customer_id) index gets realtime.ErrChannelExists.
func (m *MongoDB) InsertChannel(channel *entity.Channel) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(channelsCollection)

	_, err = collection.InsertOne(m.ctx, channel)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return realtime.ErrChannelExists
		}
		return fmt.Errorf("mongodb insert channel: %w", err)
	}

	return nil
}

// TouchChannel bumps last_message_at/updated_at after a send. Failures here
// only affect chat-list ordering, the caller treats them as best effort.
func (m *MongoDB) TouchChannel(channelID string, at time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(channelsCollection)
	filter := bson.D{{Key: "_id", Value: channelID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "last_message_at", Value: at},
		{Key: "updated_at", Value: at},
	}}}

	_, err = collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb touch channel: %w", err)
	}

	return nil
}

// GetChannelSummaries returns the operator chat list: one row per channel of
// the tenant with last message preview and unread count, newest first.
func (m *MongoDB) GetChannelSummaries(tenantID string) ([]entity.ChannelSummary, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	channels := connection.Database(m.database).Collection(channelsCollection)
	filter := bson.D{{Key: "tenant_id", Value: tenantID}}

	cursor, err := channels.Find(m.ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongodb find tenant channels: %w", err)
	}

	var tenantChannels []entity.Channel
	if err = cursor.All(m.ctx, &tenantChannels); err != nil {
		return nil, fmt.Errorf("mongodb decode tenant channels: %w", err)
	}

	if len(tenantChannels) == 0 {
		return nil, nil
	}

	channelIDs := make([]string, 0, len(tenantChannels))
	customers := make(map[string]string, len(tenantChannels))
	for _, ch := range tenantChannels {
		channelIDs = append(channelIDs, ch.ID)
		customers[ch.ID] = ch.CustomerID
	}

	messages := connection.Database(m.database).Collection(messagesCollection)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "channel_id", Value: bson.D{{Key: "$in", Value: channelIDs}}},
		}}},
		// Sort by created_at descending so $first gives the latest message
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$channel_id"},
			{Key: "last_message", Value: bson.D{{Key: "$first", Value: "$content"}}},
			{Key: "last_time", Value: bson.D{{Key: "$first", Value: "$created_at"}}},
			{Key: "unread", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$sender_type", entity.PartyCustomer}}},
						bson.D{{Key: "$eq", Value: bson.A{"$is_read", false}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_time", Value: -1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "channel_id", Value: "$_id"},
			{Key: "last_message", Value: 1},
			{Key: "last_time", Value: 1},
			{Key: "unread", Value: 1},
		}}},
	}

	aggCursor, err := messages.Aggregate(m.ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongodb aggregate channel summaries: %w", err)
	}
	defer aggCursor.Close(m.ctx)

	var summaries []entity.ChannelSummary
	if err = aggCursor.All(m.ctx, &summaries); err != nil {
		return nil, fmt.Errorf("mongodb decode channel summaries: %w", err)
	}

	for i := range summaries {
		summaries[i].CustomerID = customers[summaries[i].ChannelID]
	}

	return summaries, nil
}
