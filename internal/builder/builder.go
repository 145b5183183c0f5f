package builder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/uiprime-backend/internal/api"
	chatapi "github.com/futig/uiprime-backend/internal/api/chat"
	contactapi "github.com/futig/uiprime-backend/internal/api/contact"
	"github.com/futig/uiprime-backend/internal/api/middleware"
	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/integration/embedding"
	"github.com/futig/uiprime-backend/internal/integration/index"
	"github.com/futig/uiprime-backend/internal/integration/llm"
	"github.com/futig/uiprime-backend/internal/integration/mail"
	"github.com/futig/uiprime-backend/internal/pkg/ratelimit"
	"github.com/futig/uiprime-backend/internal/pkg/validator"
	"github.com/futig/uiprime-backend/internal/prompt"
	"github.com/futig/uiprime-backend/internal/usecase/chat"
	"github.com/futig/uiprime-backend/internal/usecase/contact"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	return build(context.Background(), cfg, logger)
}

// build wires the application from an already loaded configuration.
func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
		zap.Bool("mocks", cfg.EnableMocks),
	)

	app := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}

	var redisClient *redis.Client
	if needsRedis(cfg) {
		client, err := setupRedis(ctx, cfg.RedisCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup redis: %w", err)
		}
		redisClient = client
		app.closers = append(app.closers, closer{name: "redis", close: func(context.Context) error {
			return client.Close()
		}})
	}

	limiter := setupLimiter(cfg.RateLimitCfg, redisClient, logger)

	clientIP, err := middleware.NewClientIP(cfg.RateLimitCfg.TrustedProxies)
	if err != nil {
		app.release(ctx)
		return nil, fmt.Errorf("setup client ip resolver: %w", err)
	}

	requestValidator := validator.New(validator.Limits{
		MaxQueryLength:   cfg.ChatCfg.MaxQueryLength,
		MaxContentLength: cfg.MailCfg.MaxContentLength,
		RequireLanguage:  cfg.ChatCfg.RequireLanguage,
	})
	logger.Info("Validators initialized")

	var handlers api.Handlers

	chatUC, err := buildChat(cfg, app, requestValidator, redisClient, logger)
	switch {
	case errors.Is(err, config.ErrMissingSetting):
		logger.Error("chat disabled: configuration error", zap.Error(err))
	case err != nil:
		app.release(ctx)
		return nil, fmt.Errorf("setup chat: %w", err)
	default:
		handlers.Chat = chatapi.NewHandler(chatUC)
		logger.Info("chat enabled", zap.Bool("retrieval", chatUC.RetrievalEnabled()))
	}

	contactUC, err := buildContact(cfg, requestValidator, logger)
	switch {
	case errors.Is(err, config.ErrMissingSetting):
		logger.Error("contact form disabled: configuration error", zap.Error(err))
	case err != nil:
		app.release(ctx)
		return nil, fmt.Errorf("setup contact form: %w", err)
	default:
		handlers.Contact = contactapi.NewHandler(contactUC)
		logger.Info("contact form enabled")
	}

	router := api.SetupRouter(cfg, handlers, limiter, clientIP, logger)
	logger.Info("HTTP router configured")

	app.server = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return app, nil
}

func setupLimiter(cfg config.RateLimitConfig, client *redis.Client, logger *zap.Logger) ratelimit.Limiter {
	policies := ratelimit.Policies{
		ratelimit.OperationContact: {Limit: cfg.ContactLimit, Window: cfg.ContactWindow},
		ratelimit.OperationChat:    {Limit: cfg.ChatLimit, Window: cfg.ChatWindow},
	}

	logger.Info("rate limiter initialized",
		zap.String("backend", cfg.Backend),
		zap.Int("contact_limit", cfg.ContactLimit),
		zap.Duration("contact_window", cfg.ContactWindow),
		zap.Int("chat_limit", cfg.ChatLimit),
		zap.Duration("chat_window", cfg.ChatWindow),
	)

	if cfg.Backend == "redis" && client != nil {
		return ratelimit.NewRedisLimiter(client, policies)
	}
	return ratelimit.NewMemoryLimiter(policies, cfg.CleanupInterval)
}

func buildChat(
	cfg *config.Config,
	app *App,
	requestValidator *validator.Validator,
	redisClient *redis.Client,
	logger *zap.Logger,
) (*chat.ChatUsecase, error) {
	var llmConnector chat.LLMConnector
	if cfg.EnableMocks {
		logger.Info("Using mock language model")
		llmConnector = llm.NewMockConnector(logger)
	} else {
		if err := cfg.LLMCfg.Validate(); err != nil {
			return nil, err
		}
		connector, err := llm.NewConnector(cfg.LLMCfg, logger)
		if err != nil {
			return nil, err
		}
		llmConnector = connector
	}

	retrieval, err := buildRetrieval(cfg, app, redisClient, logger)
	if err != nil {
		return nil, err
	}

	format := prompt.ParseFormat(cfg.ChatCfg.OutputFormat)
	resolver := prompt.NewResolver(cfg.ChatCfg.SupportedLanguages, cfg.ChatCfg.DefaultLanguage)
	logger.Info("language resolver initialized",
		zap.Strings("supported", cfg.ChatCfg.SupportedLanguages),
		zap.String("fallback", resolver.Fallback()),
	)

	return chat.NewUsecase(
		requestValidator,
		resolver,
		prompt.NewComposer(cfg.Knowledge, format),
		prompt.NewShaper(format),
		llmConnector,
		retrieval,
		cfg.ChatCfg.GenerationTimeout,
		logger,
	), nil
}

// buildRetrieval returns nil when the RETRIEVING stage is disabled.
func buildRetrieval(
	cfg *config.Config,
	app *App,
	redisClient *redis.Client,
	logger *zap.Logger,
) (*chat.Retrieval, error) {
	rag := cfg.RAGCfg
	if !rag.Enabled {
		return nil, nil
	}

	if err := rag.Validate(); err != nil {
		return nil, err
	}

	var embedder chat.Embedder
	if cfg.EnableMocks {
		logger.Info("Using mock embedder")
		embedder = embedding.NewMockConnector(logger)
	} else {
		if err := cfg.EmbeddingCfg.Validate(); err != nil {
			return nil, err
		}
		embedder = embedding.NewConnector(cfg.EmbeddingCfg, logger)
	}

	if cfg.EmbeddingCfg.CacheTTL > 0 && redisClient != nil {
		embedder = embedding.NewCachedEmbedder(embedder, redisClient, cfg.EmbeddingCfg.Model, cfg.EmbeddingCfg.CacheTTL)
	}

	var querier chat.IndexQuerier
	switch rag.Provider {
	case "pinecone":
		querier = index.NewPinecone(rag.Pinecone, logger)
	case "milvus":
		milvus := index.NewMilvus(rag.Milvus, logger)
		app.closers = append(app.closers, closer{name: "milvus", close: milvus.Close})
		querier = milvus
	case "memory":
		memory := index.NewMemory()
		if rag.SeedFile != "" {
			seeded, err := index.NewSeededMemory(rag.SeedFile, embedder)
			if err != nil {
				return nil, fmt.Errorf("seed memory index: %w", err)
			}
			memory = seeded
			logger.Info("memory index loaded", zap.Int("indexed", memory.Len()), zap.String("file", rag.SeedFile))
		}
		querier = memory
	}

	logger.Info("retrieval enabled",
		zap.String("provider", rag.Provider),
		zap.Int("top_k", rag.TopK),
		zap.String("failure_policy", rag.FailurePolicy),
	)

	return &chat.Retrieval{
		Embedder: embedder,
		Index:    querier,
		TopK:     rag.TopK,
		Policy:   chat.RetrievalPolicy(rag.FailurePolicy),
		Timeout:  rag.Timeout,
	}, nil
}

func buildContact(cfg *config.Config, requestValidator *validator.Validator, logger *zap.Logger) (*contact.ContactUsecase, error) {
	var mailConnector contact.MailConnector
	if cfg.EnableMocks {
		logger.Info("Using mock mail relay")
		mailConnector = mail.NewMockConnector(logger)
	} else {
		if err := cfg.MailCfg.Validate(); err != nil {
			return nil, err
		}
		connector, err := mail.NewConnector(cfg.MailCfg, logger)
		if err != nil {
			return nil, err
		}
		mailConnector = connector
	}

	return contact.NewUsecase(requestValidator, mailConnector, contact.Relay{
		From:      cfg.MailCfg.From,
		Recipient: cfg.MailCfg.Recipient,
		Timeout:   cfg.MailCfg.Timeout,
	}, logger), nil
}
