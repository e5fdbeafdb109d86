package channel

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"FleetTalk/entity"
	"FleetTalk/internal/lib/api/cont"
	"FleetTalk/internal/lib/api/response"
)

// GetMessages returns paginated message history for a channel of the tenant,
// newest first.
func GetMessages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("No session"))
			return
		}

		channelID := chi.URLParam(r, "channel_id")
		if channelID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("channel_id is required"))
			return
		}

		limit := 50
		offset := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
				limit = v
			}
		}
		if o := r.URL.Query().Get("offset"); o != "" {
			if v, err := strconv.Atoi(o); err == nil && v >= 0 {
				offset = v
			}
		}

		messages, err := handler.GetChannelMessages(session.TenantID, channelID, limit, offset)
		if err != nil {
			log.Error("failed to get channel messages",
				slog.String("channel_id", channelID),
				slog.Any("error", err),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get messages"))
			return
		}

		if messages == nil {
			messages = []entity.ChatMessage{}
		}

		render.JSON(w, r, response.Ok(messages))
	}
}
