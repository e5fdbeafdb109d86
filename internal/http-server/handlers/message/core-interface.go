package message

import "FleetTalk/entity"

// Core defines the methods required by message handlers.
type Core interface {
	SendChatMessage(session *entity.Session, customerID, content string, metadata map[string]interface{}) error
	SendBulkChatMessage(session *entity.Session, customerIDs []string, content string) error
}
