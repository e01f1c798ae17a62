package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared-cache Store for multi-process deployments. Each
// fingerprint becomes a key with the window as its TTL; SET NX makes the
// check-and-mark atomic across processes.
type RedisStore struct {
	client         *redis.Client
	inboundWindow  time.Duration
	outboundWindow time.Duration
}

// NewRedisStore creates a Store backed by Redis.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("idempotency: redis client cannot be nil")
	}
	return &RedisStore{
		client:         client,
		inboundWindow:  DefaultInboundWindow,
		outboundWindow: DefaultOutboundWindow,
	}
}

// CheckAndMarkInbound marks the inbound fingerprint with the re-entrancy TTL.
func (s *RedisStore) CheckAndMarkInbound(ctx context.Context, fingerprint string) (bool, error) {
	return s.setNX(ctx, inboundKey(fingerprint), s.inboundWindow)
}

// CheckAndMarkOutbound marks the outbound fingerprint with the delivery TTL.
func (s *RedisStore) CheckAndMarkOutbound(ctx context.Context, fingerprint string) (bool, error) {
	return s.setNX(ctx, outboundKey(fingerprint), s.outboundWindow)
}

func (s *RedisStore) setNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: redis setnx failed: %w", err)
	}
	return ok, nil
}

func inboundKey(fingerprint string) string {
	return "dedup:in:" + fingerprint
}

func outboundKey(fingerprint string) string {
	return "dedup:out:" + fingerprint
}
