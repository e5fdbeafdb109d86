package message

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"FleetTalk/internal/lib/api/cont"
	"FleetTalk/internal/lib/api/response"
)

type SendRequest struct {
	CustomerID string                 `json:"customer_id" validate:"required"`
	Content    string                 `json:"content" validate:"required"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Send persists an outbound message for the authenticated session, creating
// the channel on first contact.
func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("No session"))
			return
		}

		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("customer_id and content are required"))
			return
		}

		if err := handler.SendChatMessage(session, req.CustomerID, req.Content, req.Metadata); err != nil {
			log.Error("failed to send message",
				slog.String("customer_id", req.CustomerID),
				slog.Any("error", err),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to send message"))
			return
		}

		render.JSON(w, r, response.Ok("message sent"))
	}
}
