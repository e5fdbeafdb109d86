package realtime

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/sl"
)

// ErrChannelExists is returned by ChannelRepository.InsertChannel when a
// concurrent creator already took the (tenant, customer) pair.
var ErrChannelExists = errors.New("channel already exists")

// ChannelRepository is the slice of the message store the directory needs.
type ChannelRepository interface {
	FindChannel(tenantID, customerID string) (*entity.Channel, error)
	InsertChannel(channel *entity.Channel) error
}

// Directory resolves a (tenant, customer) pair to its durable channel,
// creating the channel lazily on first contact.
type Directory struct {
	repo ChannelRepository
	log  *slog.Logger
}

func NewDirectory(repo ChannelRepository, log *slog.Logger) *Directory {
	return &Directory{
		repo: repo,
		log:  log.With(sl.Module("realtime.directory")),
	}
}

// ResolveOrCreate returns the channel id for the pair. An empty result means
// resolution failed and the calling operation must short-circuit; errors are
// logged here, never propagated.
func (d *Directory) ResolveOrCreate(tenantID, customerID string) string {
	if tenantID == "" || customerID == "" {
		return ""
	}

	channel, err := d.repo.FindChannel(tenantID, customerID)
	if err != nil {
		d.log.Error("channel lookup failed",
			slog.String("tenant_id", tenantID),
			slog.String("customer_id", customerID),
			sl.Err(err),
		)
		return ""
	}
	if channel != nil {
		return channel.ID
	}

	created := &entity.Channel{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		CustomerID: customerID,
		UpdatedAt:  time.Now().UTC(),
	}

	err = d.repo.InsertChannel(created)
	if err == nil {
		return created.ID
	}

	if errors.Is(err, ErrChannelExists) {
		// lost the creation race, the winner's channel is the channel
		channel, err = d.repo.FindChannel(tenantID, customerID)
		if err != nil || channel == nil {
			d.log.Error("channel re-lookup after race failed",
				slog.String("tenant_id", tenantID),
				slog.String("customer_id", customerID),
			)
			return ""
		}
		return channel.ID
	}

	d.log.Error("channel create failed",
		slog.String("tenant_id", tenantID),
		slog.String("customer_id", customerID),
		sl.Err(err),
	)
	return ""
}
