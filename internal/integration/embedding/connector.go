package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/integration/common"
	"github.com/futig/uiprime-backend/internal/pkg/lazy"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var ErrEmptyEmbedding = errors.New("embedder returned an empty vector")

// Factory builds the underlying embedder.
type Factory func(ctx context.Context) (embeddings.Embedder, error)

// Connector embeds query text. The provider client is built on the first
// EmbedQuery and reused for the lifetime of the process.
type Connector struct {
	config   config.EmbeddingConfig
	embedder *lazy.Value[embeddings.Embedder]
	logger   *zap.Logger
}

func NewConnector(cfg config.EmbeddingConfig, logger *zap.Logger) *Connector {
	return NewConnectorWithFactory(cfg, logger, providerFactory(cfg, logger))
}

func NewConnectorWithFactory(cfg config.EmbeddingConfig, logger *zap.Logger, factory Factory) *Connector {
	return &Connector{
		config:   cfg,
		embedder: lazy.New(factory),
		logger:   logger,
	}
}

func (c *Connector) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedder, err := c.embedder.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if len(vector) == 0 {
		return nil, ErrEmptyEmbedding
	}

	ctxzap.Debug(ctx, "query embedded", zap.Int("dimensions", len(vector)))

	return vector, nil
}

// ready reports whether the embedder has been initialized.
func (c *Connector) ready() bool {
	_, ok := c.embedder.Peek()
	return ok
}

func providerFactory(cfg config.EmbeddingConfig, logger *zap.Logger) Factory {
	return func(ctx context.Context) (embeddings.Embedder, error) {
		ctxzap.Info(ctx, "initializing embedder",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
		)

		base := common.NewBaseConnector(cfg.HTTPClientConfig, logger)

		var client embeddings.EmbedderClient
		switch cfg.Provider {
		case "openai":
			opts := []openai.Option{
				openai.WithToken(cfg.Token),
				openai.WithEmbeddingModel(cfg.Model),
				openai.WithHTTPClient(base.HTTPClient()),
			}
			if cfg.Url != "" {
				opts = append(opts, openai.WithBaseURL(cfg.Url))
			}
			llm, err := openai.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("create openai embedding client: %w", err)
			}
			client = llm
		case "ollama":
			opts := []ollama.Option{
				ollama.WithModel(cfg.Model),
				ollama.WithServerURL(cfg.Url),
				ollama.WithHTTPClient(base.HTTPClient()),
			}
			if cfg.PullModel {
				opts = append(opts, ollama.WithPullModel())
			}
			llm, err := ollama.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("create ollama embedding client: %w", err)
			}
			client = llm
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
		}

		embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}

		ctxzap.Info(ctx, "embedder initialized")

		return embedder, nil
	}
}
