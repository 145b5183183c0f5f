package mail

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// MessageIDHeader carries the relay's own ID so a delivered mail can be
// matched with the log line of the request that sent it.
const MessageIDHeader gomail.Header = "X-UIPrime-Message-ID"

type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// Connector delivers contact-form mail over SMTP.
type Connector struct {
	config config.MailConfig
	send   sendFunc
	logger *zap.Logger
}

func NewConnector(cfg config.MailConfig, logger *zap.Logger) (*Connector, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Connector{
		config: cfg,
		send: func(ctx context.Context, msg *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		logger: logger,
	}, nil
}

func newClient(cfg config.MailConfig) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
		gomail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

func tlsPolicy(policy string) gomail.TLSPolicy {
	switch policy {
	case "opportunistic":
		return gomail.TLSOpportunistic
	case "none":
		return gomail.NoTLS
	default:
		return gomail.TLSMandatory
	}
}

// Send delivers the message, retrying per MAIL_RETRY_* (one attempt by
// default).
func (c *Connector) Send(ctx context.Context, message entity.MailMessage) error {
	msg, err := buildMessage(message)
	if err != nil {
		return err
	}

	ctxzap.Info(ctx, "sending mail via SMTP",
		zap.String("message_id", message.ID),
		zap.Int("recipients", len(message.To)),
	)

	attempt := 0
	err = retry.Do(func() error {
		attempt++
		return c.send(ctx, msg)
	},
		append(c.config.Retry.ToRetryOptions(ctx),
			retry.OnRetry(func(n uint, err error) {
				ctxzap.Warn(ctx, "mail delivery failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)...,
	)
	if err != nil {
		return fmt.Errorf("smtp delivery after %d attempt(s): %w", attempt, err)
	}

	ctxzap.Info(ctx, "mail sent successfully", zap.String("message_id", message.ID))

	return nil
}

func buildMessage(message entity.MailMessage) (*gomail.Msg, error) {
	msg := gomail.NewMsg()

	if err := msg.From(message.From); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(message.To...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	if message.ReplyTo != "" {
		if err := msg.ReplyTo(message.ReplyTo); err != nil {
			return nil, fmt.Errorf("set reply-to: %w", err)
		}
	}

	msg.Subject(message.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, message.Body)
	if message.ID != "" {
		msg.SetGenHeader(MessageIDHeader, message.ID)
	}

	return msg, nil
}
