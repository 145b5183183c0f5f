package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector answers without calling a model. Used with ENABLE_MOCKS.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Generate(ctx context.Context, prompt entity.ComposedPrompt) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating answer via LLM", zap.String("language", prompt.Language))

	query := prompt.UserMessage
	if i := strings.LastIndex(query, "Question: "); i >= 0 {
		query = query[i+len("Question: "):]
	}

	if prompt.Language == "ro" {
		return fmt.Sprintf("UIPrime vă poate ajuta cu: %q. Folosiți formularul de contact pentru o consultație gratuită.", query), nil
	}
	return fmt.Sprintf("UIPrime can help with: %q. Use the contact form for a free consultation.", query), nil
}
