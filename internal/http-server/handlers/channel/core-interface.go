package channel

import "FleetTalk/entity"

// Core defines the methods required by channel handlers.
type Core interface {
	GetChannelSummaries(tenantID string) ([]entity.ChannelSummary, error)
	GetChannelMessages(tenantID, channelID string, limit, offset int) ([]entity.ChatMessage, error)
	MarkChannelRead(session *entity.Session, channelID string) error
}
