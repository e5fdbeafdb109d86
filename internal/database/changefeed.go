package repository

import (
	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageFeed exposes the messages collection as a change feed: one event per
// inserted message and one per message that became read. The feed is not
// tenant-scoped, consumers filter events against their own channels.
type MessageFeed struct {
	m *MongoDB
}

func (m *MongoDB) MessageFeed() *MessageFeed {
	return &MessageFeed{m: m}
}

// Subscribe opens a change stream over the messages collection. The returned
// channel closes when the stream dies or ctx is cancelled; the caller owns
// resubscription.
func (f *MessageFeed) Subscribe(ctx context.Context) (<-chan entity.FeedEvent, error) {
	connection, err := f.m.connect()
	if err != nil {
		return nil, err
	}

	collection := connection.Database(f.m.database).Collection(messagesCollection)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "operationType", Value: "insert"}},
			bson.D{
				{Key: "operationType", Value: "update"},
				{Key: "fullDocument.is_read", Value: true},
			},
		}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := collection.Watch(ctx, pipeline, opts)
	if err != nil {
		f.m.disconnect(connection)
		return nil, fmt.Errorf("mongodb watch messages: %w", err)
	}

	events := make(chan entity.FeedEvent, 64)

	go func() {
		defer close(events)
		defer f.m.disconnect(connection)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var change struct {
				OperationType string             `bson:"operationType"`
				FullDocument  entity.ChatMessage `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				f.m.log.Warn("decode change event", sl.Err(err))
				continue
			}

			op := entity.FeedOpInsert
			if change.OperationType != "insert" {
				op = entity.FeedOpRead
			}

			select {
			case events <- entity.FeedEvent{Op: op, Message: change.FullDocument}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			f.m.log.Warn("message change stream closed", sl.Err(err))
		}
	}()

	return events, nil
}
