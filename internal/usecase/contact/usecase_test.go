package contact

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMail struct {
	sent        []entity.MailMessage
	err         error
	hasDeadline bool
}

func (f *fakeMail) Send(ctx context.Context, m entity.MailMessage) error {
	_, f.hasDeadline = ctx.Deadline()
	f.sent = append(f.sent, m)
	return f.err
}

func newUsecase(mail MailConnector) *ContactUsecase {
	return NewUsecase(
		validator.New(validator.Limits{MaxContentLength: 5000}),
		mail,
		Relay{From: "UIPrime <noreply@uiprime.com>", Recipient: "inbox@uiprime.com", Timeout: time.Minute},
		zap.NewNop(),
	)
}

func TestSendMessage_Success(t *testing.T) {
	mail := &fakeMail{}
	uc := newUsecase(mail)

	resp, err := uc.SendMessage(context.Background(), &entity.ContactRequest{
		Content:        "I need an online shop.",
		SenderMail:     " ana@example.com ",
		SenderFullName: "Ana \n Pop",
	})
	require.NoError(t, err)
	assert.Equal(t, "Email sent successfully", resp.Details)

	require.Len(t, mail.sent, 1)
	m := mail.sent[0]
	assert.Equal(t, "Email from Ana Pop | ana@example.com", m.Subject)
	assert.Equal(t, "UIPrime <noreply@uiprime.com>", m.From)
	assert.Equal(t, []string{"inbox@uiprime.com"}, m.To)
	assert.Equal(t, "ana@example.com", m.ReplyTo)
	assert.Equal(t, "I need an online shop.", m.Body)
	_, err = uuid.Parse(m.ID)
	assert.NoError(t, err)
	assert.True(t, mail.hasDeadline)
}

func TestSendMessage_RejectsBeforeDelivery(t *testing.T) {
	tests := []struct {
		name string
		req  entity.ContactRequest
		is   error
	}{
		{"missing content", entity.ContactRequest{SenderMail: "a@b.com", SenderFullName: "A"}, entity.ErrMissingField},
		{"missing name", entity.ContactRequest{Content: "x", SenderMail: "a@b.com"}, entity.ErrMissingField},
		{"malformed email", entity.ContactRequest{Content: "x", SenderMail: "a@", SenderFullName: "A"}, entity.ErrInvalidEmail},
		{"content too long", entity.ContactRequest{Content: strings.Repeat("a", 5001), SenderMail: "a@b.com", SenderFullName: "A"}, entity.ErrContentTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mail := &fakeMail{}
			uc := newUsecase(mail)

			_, err := uc.SendMessage(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.is)
			assert.Empty(t, mail.sent)
		})
	}
}

func TestSendMessage_ContentAtCapIsAccepted(t *testing.T) {
	mail := &fakeMail{}
	uc := newUsecase(mail)

	_, err := uc.SendMessage(context.Background(), &entity.ContactRequest{
		Content: strings.Repeat("ă", 5000), SenderMail: "a@b.com", SenderFullName: "A",
	})
	require.NoError(t, err)
	assert.Len(t, mail.sent, 1)
}

func TestSendMessage_DeliveryFailure(t *testing.T) {
	mail := &fakeMail{err: errors.New("535 authentication failed")}
	uc := newUsecase(mail)

	_, err := uc.SendMessage(context.Background(), &entity.ContactRequest{
		Content: "hi", SenderMail: "a@b.com", SenderFullName: "A",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
	assert.NotErrorIs(t, err, entity.ErrValidation)
}
