package repository

import (
	"FleetTalk/entity"
	"FleetTalk/internal/config"
	"FleetTalk/internal/lib/sl"
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"log/slog"
)

const (
	channelsCollection = "channels"
	messagesCollection = "messages"
	tokensCollection   = "tokens"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
	log           *slog.Logger
}

func NewMongoClient(conf *config.Config, logger *slog.Logger) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
		log:           logger.With(sl.Module("mongodb")),
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find error: %w", err)
}

// CheckToken resolves an access token to the realtime session it belongs to.
func (m *MongoDB) CheckToken(token string) (*entity.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(tokensCollection)
	filter := bson.D{{Key: "token", Value: token}}

	var result struct {
		Token           string `bson:"token"`
		TenantID        string `bson:"tenant_id"`
		ParticipantType string `bson:"participant_type"`
		ParticipantID   string `bson:"participant_id"`
	}
	err = collection.FindOne(m.ctx, filter).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("mongodb find token: %w", err)
	}

	if result.TenantID == "" || result.ParticipantID == "" {
		return nil, fmt.Errorf("token not bound to a session")
	}

	return &entity.Session{
		TenantID:        result.TenantID,
		ParticipantType: result.ParticipantType,
		ParticipantID:   result.ParticipantID,
	}, nil
}

// EnsureIndexes creates the indexes the chat subsystem relies on. The unique
// channel index is what collapses a concurrent create race to one winner.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	channels := connection.Database(m.database).Collection(channelsCollection)
	_, err = channels.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "customer_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb create channel index: %w", err)
	}

	messages := connection.Database(m.database).Collection(messagesCollection)
	_, err = messages.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "channel_id", Value: 1},
			{Key: "is_read", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("mongodb create message index: %w", err)
	}

	return nil
}
