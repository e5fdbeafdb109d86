package channel

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/api/cont"
	"FleetTalk/internal/lib/api/response"
)

// GetChannels returns the tenant's chat list with last message info and
// unread counts.
func GetChannels(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("No session"))
			return
		}

		channels, err := handler.GetChannelSummaries(session.TenantID)
		if err != nil {
			log.Error("failed to get channel summaries", slog.Any("error", err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get channels"))
			return
		}

		if channels == nil {
			channels = []entity.ChannelSummary{}
		}

		render.JSON(w, r, response.Ok(channels))
	}
}
