package core

import (
	"log/slog"
	"time"

	"FleetTalk/entity"
	"FleetTalk/internal/config"
	"FleetTalk/internal/lib/sl"
	"FleetTalk/internal/realtime"
)

// Repository is the persistence surface the chat core needs.
type Repository interface {
	CheckToken(token string) (*entity.Session, error)

	FindChannel(tenantID, customerID string) (*entity.Channel, error)
	GetChannel(channelID string) (*entity.Channel, error)
	InsertChannel(channel *entity.Channel) error
	TouchChannel(channelID string, at time.Time) error
	GetChannelSummaries(tenantID string) ([]entity.ChannelSummary, error)

	InsertMessage(msg *entity.ChatMessage) error
	MarkMessagesRead(channelID, senderType string, at time.Time) (int64, error)
	CountUnread(channelID, senderType string) (int64, error)
	GetChannelMessages(channelID string, limit, offset int) ([]entity.ChatMessage, error)
}

type Core struct {
	conf *config.Config
	repo Repository
	feed realtime.ChangeFeed
	log  *slog.Logger

	directory *realtime.Directory
	store     *realtime.Store
	typing    *realtime.TypingBroadcaster
	presence  *realtime.PresenceTracker
}

func New(conf *config.Config, log *slog.Logger) *Core {
	return &Core{
		conf: conf,
		log:  log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetFeed(feed realtime.ChangeFeed) {
	c.feed = feed
}

// Init builds the shared realtime components. Must run after the setters.
func (c *Core) Init() {
	c.directory = realtime.NewDirectory(c.repo, c.log)
	c.store = realtime.NewStore(c.repo, c.log)
	c.typing = realtime.NewTypingBroadcaster()
	c.presence = realtime.NewPresenceTracker()
}

// NewChatSession builds the realtime facade for one participant session.
// Each session owns its tenant-wide bus subscription; typing and presence
// fan-out is shared across all sessions of the process.
func (c *Core) NewChatSession(session entity.Session) *realtime.Chat {
	bus := realtime.NewBus(session.TenantID, c.feed, c.repo, c.log)
	bus.SetBackoff(
		time.Duration(c.conf.Realtime.ResubscribeMinSec)*time.Second,
		time.Duration(c.conf.Realtime.ResubscribeMaxSec)*time.Second,
	)
	return realtime.NewChat(session, c.directory, c.store, bus, c.typing, c.presence, c.log)
}

// AuthenticateByToken resolves an API token to its participant session.
func (c *Core) AuthenticateByToken(token string) (*entity.Session, error) {
	return c.repo.CheckToken(token)
}

// ValidateToken is the WebSocket-side alias of AuthenticateByToken.
func (c *Core) ValidateToken(token string) (*entity.Session, error) {
	return c.AuthenticateByToken(token)
}
