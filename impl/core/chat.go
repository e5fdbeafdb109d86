package core

import (
	"fmt"
	"log/slog"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
)

// GetChannelSummaries returns the tenant's chat list with last-message info
// and unread counts.
func (c *Core) GetChannelSummaries(tenantID string) ([]entity.ChannelSummary, error) {
	return c.repo.GetChannelSummaries(tenantID)
}

// GetChannelMessages returns paginated history for a channel after checking
// the channel belongs to the requesting tenant.
func (c *Core) GetChannelMessages(tenantID, channelID string, limit, offset int) ([]entity.ChatMessage, error) {
	channel, err := c.repo.GetChannel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if channel == nil || channel.TenantID != tenantID {
		return nil, fmt.Errorf("channel not found")
	}
	return c.repo.GetChannelMessages(channelID, limit, offset)
}

// MarkChannelRead flips the opposing party's unread messages for the session.
func (c *Core) MarkChannelRead(session *entity.Session, channelID string) error {
	channel, err := c.repo.GetChannel(channelID)
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if channel == nil || channel.TenantID != session.TenantID {
		return fmt.Errorf("channel not found")
	}
	c.store.MarkRead(channelID, session.ParticipantType)
	return nil
}

// SendChatMessage persists an outbound message for the session, creating the
// channel on first contact.
func (c *Core) SendChatMessage(session *entity.Session, customerID, content string, metadata map[string]interface{}) error {
	channelID := c.directory.ResolveOrCreate(session.TenantID, customerID)
	if channelID == "" {
		return fmt.Errorf("channel resolution failed")
	}
	if msg := c.store.Send(channelID, session.ParticipantType, session.ParticipantID, content, metadata); msg == nil {
		return fmt.Errorf("message not persisted")
	}
	return nil
}

// SendBulkChatMessage sends the content to each customer in turn. Failed
// recipients are logged and skipped; the successful sends stand.
func (c *Core) SendBulkChatMessage(session *entity.Session, customerIDs []string, content string) error {
	failed := 0
	for _, customerID := range customerIDs {
		err := c.SendChatMessage(session, customerID, content, map[string]interface{}{"bulk": true})
		if err != nil {
			failed++
			c.log.With(
				slog.String("customer_id", customerID),
				sl.Err(err),
			).Warn("bulk send failed for recipient")
		}
	}
	if failed == len(customerIDs) && failed > 0 {
		return fmt.Errorf("bulk send failed for all %d recipients", failed)
	}
	return nil
}
