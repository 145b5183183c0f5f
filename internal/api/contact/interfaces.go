package contact

import (
	"context"

	"github.com/futig/uiprime-backend/internal/entity"
)

type ContactUsecase interface {
	SendMessage(ctx context.Context, req *entity.ContactRequest) (*entity.ContactResponse, error)
}
