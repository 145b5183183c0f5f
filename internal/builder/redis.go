package builder

import (
	"context"
	"fmt"

	"github.com/futig/uiprime-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setupRedis creates a client and checks that the server answers.
func setupRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("redis connection established",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize),
	)

	return client, nil
}

// needsRedis reports whether any enabled component is backed by redis.
func needsRedis(cfg *config.Config) bool {
	if cfg.RateLimitCfg.Backend == "redis" {
		return true
	}
	return cfg.RAGCfg.Enabled && cfg.EmbeddingCfg.CacheTTL > 0
}
