// Package logger keeps the request-scoped zap logger in the context, where
// the HTTP middleware put it.
package logger

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// AddFields adds fields to the logger in context and returns new context
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	return ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(fields...))
}

// WithAction names the flow being logged, usually the handler.
func WithAction(ctx context.Context, action string) context.Context {
	return AddFields(ctx, zap.String("action", action))
}

// WithStage tags subsequent entries with a pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return AddFields(ctx, zap.String("stage", stage))
}
