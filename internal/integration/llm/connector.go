package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Connector sends composed prompts to an OpenAI-compatible chat model.
type Connector struct {
	config config.LLMConfig
	model  llms.Model
	logger *zap.Logger
}

func NewConnector(
	cfg config.LLMConfig,
	logger *zap.Logger,
) (*Connector, error) {
	base := common.NewBaseConnector(cfg.HTTPClientConfig, logger)

	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(base.HTTPClient()),
	}
	if cfg.Url != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Url))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return newConnector(cfg, model, logger), nil
}

func newConnector(cfg config.LLMConfig, model llms.Model, logger *zap.Logger) *Connector {
	return &Connector{
		config: cfg,
		model:  model,
		logger: logger,
	}
}

// Generate returns the model's answer to the prompt, bounded by the
// configured token budget.
func (c *Connector) Generate(ctx context.Context, prompt entity.ComposedPrompt) (string, error) {
	ctxzap.Info(ctx, "generating answer via LLM",
		zap.String("model", c.config.Model),
		zap.String("language", prompt.Language),
	)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.SystemInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.UserMessage),
	}

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(c.config.MaxTokens),
		llms.WithTemperature(c.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}

	choice := resp.Choices[0]
	answer := strings.TrimSpace(choice.Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}

	ctxzap.Info(ctx, "answer generated successfully",
		zap.Int("answer_length", len(answer)),
		zap.String("stop_reason", choice.StopReason),
	)

	return answer, nil
}
