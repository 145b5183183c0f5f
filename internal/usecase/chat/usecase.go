package chat

import (
	"context"
	"errors"
	"time"

	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// RetrievalPolicy decides what a failed retrieval does to the request.
type RetrievalPolicy string

const (
	// RetrievalTolerant answers without documents and marks the answer degraded.
	RetrievalTolerant RetrievalPolicy = "tolerant"
	// RetrievalStrict fails the request.
	RetrievalStrict RetrievalPolicy = "strict"
)

// Retrieval enables the RETRIEVING stage. A nil *Retrieval disables it.
type Retrieval struct {
	Embedder Embedder
	Index    IndexQuerier
	TopK     int
	Policy   RetrievalPolicy
	Timeout  time.Duration
}

var errEmptyShapedAnswer = errors.New("answer is empty after shaping")

// ChatUsecase runs the chat pipeline:
// RECEIVED -> VALIDATED -> (RETRIEVING) -> COMPOSING -> GENERATING -> RESPONDED,
// with FAILED reachable from every state. A run ends with either an answer or
// a *entity.StageError.
type ChatUsecase struct {
	validator         RequestValidator
	resolver          LanguageResolver
	composer          PromptComposer
	shaper            AnswerShaper
	llm               LLMConnector
	retrieval         *Retrieval
	generationTimeout time.Duration
	logger            *zap.Logger
}

func NewUsecase(
	validator RequestValidator,
	resolver LanguageResolver,
	composer PromptComposer,
	shaper AnswerShaper,
	llm LLMConnector,
	retrieval *Retrieval,
	generationTimeout time.Duration,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		validator:         validator,
		resolver:          resolver,
		composer:          composer,
		shaper:            shaper,
		llm:               llm,
		retrieval:         retrieval,
		generationTimeout: generationTimeout,
		logger:            logger,
	}
}

// RetrievalEnabled reports whether answers are grounded on index documents.
func (uc *ChatUsecase) RetrievalEnabled() bool {
	return uc.retrieval != nil
}

func (uc *ChatUsecase) Answer(ctx context.Context, req *entity.ChatRequest) (*entity.ChatAnswer, error) {
	enter(ctx, entity.StageReceived)

	if err := uc.validator.ValidateChat(req); err != nil {
		return nil, uc.fail(ctx, entity.Fail(entity.StageReceived, err, nil))
	}
	enter(ctx, entity.StageValidated)

	language, source := uc.resolver.Resolve(req.Language, req.Query)
	ctx = logger.AddFields(ctx,
		zap.String("language", language),
		zap.String("language_source", string(source)),
	)

	var (
		docs     []entity.RetrievedDocument
		degraded bool
	)
	if uc.retrieval != nil {
		enter(ctx, entity.StageRetrieving)

		var err error
		docs, err = uc.retrieve(ctx, req.Query)
		if err != nil {
			if uc.retrieval.Policy == RetrievalStrict {
				return nil, uc.fail(ctx, entity.Fail(entity.StageRetrieving, entity.ErrRetrievalFailed, err))
			}
			ctxzap.Warn(ctx, "retrieval failed, answering without documents", zap.Error(err))
			docs, degraded = nil, true
		}
	}

	enter(ctx, entity.StageComposing)
	prompt := uc.composer.Compose(language, req.Query, docs)

	enter(ctx, entity.StageGenerating)
	answer, err := uc.generate(ctx, prompt)
	if err != nil {
		return nil, uc.fail(ctx, entity.Fail(entity.StageGenerating, entity.ErrGenerationFailed, err))
	}

	enter(ctx, entity.StageResponded)
	ctxzap.Info(ctx, "chat answered",
		zap.Int("documents", len(docs)),
		zap.Bool("degraded", degraded),
	)

	return &entity.ChatAnswer{
		Query:          req.Query,
		Answer:         answer,
		Language:       language,
		LanguageSource: source,
		Documents:      len(docs),
		Degraded:       degraded,
	}, nil
}

func (uc *ChatUsecase) retrieve(ctx context.Context, query string) ([]entity.RetrievedDocument, error) {
	ctx, cancel := withTimeout(ctx, uc.retrieval.Timeout)
	defer cancel()

	vector, err := uc.retrieval.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := uc.retrieval.Index.Query(ctx, vector, uc.retrieval.TopK)
	if err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "documents retrieved", zap.Int("count", len(docs)))
	return docs, nil
}

func (uc *ChatUsecase) generate(ctx context.Context, prompt entity.ComposedPrompt) (string, error) {
	ctx, cancel := withTimeout(ctx, uc.generationTimeout)
	defer cancel()

	raw, err := uc.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer := uc.shaper.Shape(raw)
	if answer == "" {
		return "", errEmptyShapedAnswer
	}
	return answer, nil
}

func (uc *ChatUsecase) fail(ctx context.Context, err *entity.StageError) error {
	failCtx := logger.WithStage(ctx, string(err.Stage))
	if errors.Is(err, entity.ErrValidation) {
		ctxzap.Info(failCtx, "chat request rejected", zap.Error(err.Err))
	} else {
		ctxzap.Error(failCtx, "chat pipeline failed", zap.Error(err.Err))
	}
	enter(ctx, entity.StageFailed)
	return err
}

func enter(ctx context.Context, stage entity.Stage) {
	ctxzap.Debug(ctx, "chat stage", zap.String("stage", string(stage)))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
