package contact

import (
	"context"

	"github.com/futig/uiprime-backend/internal/entity"
)

type MailConnector interface {
	Send(ctx context.Context, message entity.MailMessage) error
}

type RequestValidator interface {
	ValidateContact(req *entity.ContactRequest) error
}
