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

type BulkSendRequest struct {
	CustomerIDs []string `json:"customer_ids" validate:"required,min=1"`
	Content     string   `json:"content" validate:"required"`
}

// SendBulk sends one message to a list of customers. A failed recipient does
// not abort the remaining sends.
func SendBulk(log *slog.Logger, handler Core) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("No session"))
			return
		}

		var req BulkSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("customer_ids and content are required"))
			return
		}

		if err := handler.SendBulkChatMessage(session, req.CustomerIDs, req.Content); err != nil {
			log.Error("bulk send failed", slog.Any("error", err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to send bulk message"))
			return
		}

		render.JSON(w, r, response.Ok("bulk message sent"))
	}
}
