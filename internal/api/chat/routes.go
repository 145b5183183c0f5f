package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the chat endpoint under both its versioned and
// legacy paths. A nil handler registers the unavailable responder.
func RegisterRoutes(r chi.Router, h *Handler) {
	var handle http.HandlerFunc = Unavailable
	if h != nil {
		handle = h.Chat
	}

	r.Post("/api/v1/chat", handle)
	r.Post("/chat", handle)
}
