package mail

import (
	"context"
	"sync"

	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector records messages instead of sending them. Used with
// ENABLE_MOCKS.
type MockConnector struct {
	mu     sync.Mutex
	sent   []entity.MailMessage
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Send(ctx context.Context, message entity.MailMessage) error {
	ctxzap.Info(ctx, "[MOCK] sending mail",
		zap.String("message_id", message.ID),
		zap.String("subject", message.Subject),
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, message)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockConnector) Sent() []entity.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.MailMessage(nil), m.sent...)
}
