package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// QueryEmbedder is what CachedEmbedder decorates.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder keeps query vectors in Redis, keyed by the SHA-256 of the
// model name and text. Cache failures never fail the request.
type CachedEmbedder struct {
	next   QueryEmbedder
	client *redis.Client
	model  string
	ttl    time.Duration
	prefix string
}

func NewCachedEmbedder(next QueryEmbedder, client *redis.Client, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		client: client,
		model:  model,
		ttl:    ttl,
		prefix: "emb:",
	}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vector []float32
		if err := json.Unmarshal(data, &vector); err == nil && len(vector) > 0 {
			ctxzap.Debug(ctx, "embedding cache hit", zap.String("key", key))
			return vector, nil
		}
		ctxzap.Warn(ctx, "corrupt cached embedding, deleting", zap.String("key", key))
		_ = c.client.Del(ctx, key).Err()
	case errors.Is(err, redis.Nil):
	default:
		ctxzap.Warn(ctx, "embedding cache unavailable, calling provider", zap.Error(err))
	}

	vector, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(vector)
	if err != nil {
		return vector, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		ctxzap.Warn(ctx, "failed to cache embedding", zap.String("key", key), zap.Error(err))
	}

	return vector, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return c.prefix + hex.EncodeToString(sum[:])
}
