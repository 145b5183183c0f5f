package contact

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const sentDetails = "Email sent successfully"

// Relay is where contact-form mail goes.
type Relay struct {
	From      string
	Recipient string
	// Timeout bounds the whole delivery, retries included.
	Timeout time.Duration
}

// ContactUsecase relays contact-form submissions to a fixed inbox.
type ContactUsecase struct {
	validator RequestValidator
	mail      MailConnector
	relay     Relay
	logger    *zap.Logger
}

func NewUsecase(
	validator RequestValidator,
	mail MailConnector,
	relay Relay,
	logger *zap.Logger,
) *ContactUsecase {
	return &ContactUsecase{
		validator: validator,
		mail:      mail,
		relay:     relay,
		logger:    logger,
	}
}

// SendMessage validates the submission and hands it to the mail relay.
// Nothing is sent unless every check passes.
func (uc *ContactUsecase) SendMessage(ctx context.Context, req *entity.ContactRequest) (*entity.ContactResponse, error) {
	if err := uc.validator.ValidateContact(req); err != nil {
		ctxzap.Info(ctx, "contact message rejected", zap.Error(err))
		return nil, err
	}

	message := entity.MailMessage{
		ID:      uuid.New().String(),
		From:    uc.relay.From,
		To:      []string{uc.relay.Recipient},
		ReplyTo: req.SenderMail,
		Subject: fmt.Sprintf("Email from %s | %s", req.SenderFullName, req.SenderMail),
		Body:    req.Content,
	}

	ctxzap.Info(ctx, "relaying contact message",
		zap.String("message_id", message.ID),
		zap.Int("content_length", len(req.Content)),
	)

	if uc.relay.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.relay.Timeout)
		defer cancel()
	}

	if err := uc.mail.Send(ctx, message); err != nil {
		ctxzap.Error(ctx, "contact message delivery failed",
			zap.String("message_id", message.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", entity.ErrDeliveryFailed, err)
	}

	return &entity.ContactResponse{Details: sentDetails}, nil
}
