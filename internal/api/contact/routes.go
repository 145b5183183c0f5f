package contact

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the contact endpoint. A nil handler registers
// the unavailable responder.
func RegisterRoutes(r chi.Router, h *Handler) {
	var handle http.HandlerFunc = Unavailable
	if h != nil {
		handle = h.SendMessage
	}

	r.Post("/api/v1/send-message", handle)
	r.Post("/send-message", handle)
}
