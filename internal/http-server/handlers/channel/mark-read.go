package channel

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"FleetTalk/internal/lib/api/cont"
	"FleetTalk/internal/lib/api/response"
)

// MarkRead flips the opposing party's unread messages in a channel.
func MarkRead(log *slog.Logger, handler Core) http.HandlerFunc {
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

		if err := handler.MarkChannelRead(session, channelID); err != nil {
			log.Error("failed to mark channel read",
				slog.String("channel_id", channelID),
				slog.Any("error", err),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to mark channel read"))
			return
		}

		render.JSON(w, r, response.Ok("marked read"))
	}
}
