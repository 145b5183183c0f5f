package chat

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
	msgNoQuery      = "No query provided."
	msgNoLanguage   = "No language provided."
	msgQueryTooLong = "Query is too long."
	msgInvalidBody  = "Invalid request body."
	msgUpstream     = "Failed to get response from OpenAI."
	msgUnavailable  = "Chat is currently unavailable."
)

type Handler struct {
	usecase ChatUsecase
}

func NewHandler(usecase ChatUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// Chat handles POST /api/v1/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(ctx, "failed to decode chat request", zap.Error(err))
		response.Error(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.ClientIdentity = middleware.ClientIdentity(ctx)

	answer, err := h.usecase.Answer(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "chat answered",
		zap.String("language", answer.Language),
		zap.String("language_source", string(answer.LanguageSource)),
		zap.Int("documents", answer.Documents),
		zap.Bool("degraded", answer.Degraded),
	)

	response.Success(w, &entity.ChatResponse{
		Query:  answer.Query,
		Answer: answer.Answer,
	})
}

// Unavailable answers every chat request when the feature is not configured.
func Unavailable(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusServiceUnavailable, msgUnavailable)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrEmptyQuery):
		response.Error(w, http.StatusBadRequest, msgNoQuery)
	case errors.Is(err, entity.ErrMissingLanguage):
		response.Error(w, http.StatusBadRequest, msgNoLanguage)
	case errors.Is(err, entity.ErrQueryTooLong):
		response.Error(w, http.StatusBadRequest, msgQueryTooLong)
	case errors.Is(err, entity.ErrValidation):
		response.Error(w, http.StatusBadRequest, msgInvalidBody)
	default:
		// The pipeline already logged the cause with its stage.
		ctxzap.Debug(ctx, "chat failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, msgUpstream)
	}
}
