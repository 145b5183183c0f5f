package chat

import (
	"context"

	"github.com/futig/uiprime-backend/internal/entity"
)

type ChatUsecase interface {
	Answer(ctx context.Context, req *entity.ChatRequest) (*entity.ChatAnswer, error)
}
