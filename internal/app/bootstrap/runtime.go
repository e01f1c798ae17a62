package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/pranhealth/drai/internal/config"
	"github.com/pranhealth/drai/internal/idempotency"
	"github.com/pranhealth/drai/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildIdempotencyStore prefers Redis so dedup windows survive restarts and
// span replicas. Without Redis it falls back to the in-process store.
func BuildIdempotencyStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) idempotency.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
		logger.Info("using redis idempotency store", "addr", cfg.RedisAddr)
		return idempotency.NewRedisStore(client)
	}
	logger.Info("using in-memory idempotency store")
	return idempotency.NewMemoryStore()
}
