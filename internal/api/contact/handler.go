package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/uiprime-backend/internal/api/middleware"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/pkg/logger"
	"github.com/futig/uiprime-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	msgMissingFields  = "Not all fields are provided."
	msgInvalidEmail   = "Invalid email address format."
	msgContentTooLong = "Email content is too long."
	msgInvalidBody    = "Invalid request body."
	msgDeliveryFailed = "Failed to send email. Try again later."
	msgUnavailable    = "Contact form is currently unavailable."
)

type Handler struct {
	usecase ContactUsecase
}

func NewHandler(usecase ContactUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// SendMessage handles POST /api/v1/send-message
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(),
		zap.String("action", "SendMessage"),
		zap.String("client", middleware.ClientIdentity(r.Context())),
	)

	var req entity.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(ctx, "failed to decode contact request", zap.Error(err))
		response.Error(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.ClientIdentity = middleware.ClientIdentity(ctx)

	resp, err := h.usecase.SendMessage(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, resp)
}

// Unavailable answers every contact request when mail is not configured.
func Unavailable(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusServiceUnavailable, msgUnavailable)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrMissingField):
		response.Error(w, http.StatusBadRequest, msgMissingFields)
	case errors.Is(err, entity.ErrInvalidEmail):
		response.Error(w, http.StatusBadRequest, msgInvalidEmail)
	case errors.Is(err, entity.ErrContentTooLong):
		response.Error(w, http.StatusBadRequest, msgContentTooLong)
	case errors.Is(err, entity.ErrValidation):
		response.Error(w, http.StatusBadRequest, msgInvalidBody)
	default:
		ctxzap.Debug(ctx, "contact relay failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, msgDeliveryFailed)
	}
}
