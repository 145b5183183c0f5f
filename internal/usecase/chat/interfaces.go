package chat

import (
	"context"

	"github.com/futig/uiprime-backend/internal/entity"
)

type LLMConnector interface {
	Generate(ctx context.Context, prompt entity.ComposedPrompt) (string, error)
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type IndexQuerier interface {
	Query(ctx context.Context, vector []float32, topK int) ([]entity.RetrievedDocument, error)
}

type PromptComposer interface {
	Compose(language, query string, docs []entity.RetrievedDocument) entity.ComposedPrompt
}

type LanguageResolver interface {
	Resolve(explicit, query string) (string, entity.LanguageSource)
}

type AnswerShaper interface {
	Shape(answer string) string
}

type RequestValidator interface {
	ValidateChat(req *entity.ChatRequest) error
}
