package middleware

import (
	"context"
	"net/http"

	"github.com/futig/uiprime-backend/internal/pkg/ratelimit"
	"github.com/futig/uiprime-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const tooManyRequests = "Too many requests. Try again later."

type identityKey struct{}

// ClientIdentity returns the caller identity stored by RateLimit.
func ClientIdentity(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// RateLimit admits at most the operation's quota per client identity.
// A limiter failure lets the request through.
func RateLimit(limiter ratelimit.Limiter, operation string, clientIP *ClientIP) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := clientIP.Resolve(r)
			ctx := context.WithValue(r.Context(), identityKey{}, identity)

			decision, err := limiter.Allow(ctx, operation, identity)
			if err != nil {
				ctxzap.Warn(ctx, "rate limiter unavailable, admitting request",
					zap.String("operation", operation),
					zap.Error(err),
				)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if !decision.Allowed {
				ctxzap.Info(ctx, "request rate limited",
					zap.String("operation", operation),
					zap.String("client", identity),
					zap.Duration("retry_after", decision.RetryAfter),
				)
				response.TooManyRequests(w, decision.RetryAfter, tooManyRequests)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
