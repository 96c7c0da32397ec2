package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	planKeyPrefix        = "cartwise:plan:"
	fingerprintKeyPrefix = "cartwise:plan:fp:"
)

// RedisPlanCache stores serialized plan envelopes in Redis under two key
// spaces, the plan ID for lookups and the request fingerprint for
// idempotent replays.
type RedisPlanCache struct {
	client *RedisClient
	logger *zap.Logger
}

// NewRedisPlanCache creates a Redis-backed plan cache
func NewRedisPlanCache(client *RedisClient, logger *zap.Logger) outbound.PlanCache {
	return &RedisPlanCache{
		client: client,
		logger: logger.Named("plan-cache"),
	}
}

// GetPlan fetches a cached plan by ID. A miss returns a nil payload with
// no error.
func (c *RedisPlanCache) GetPlan(ctx context.Context, id uuid.UUID) ([]byte, error) {
	payload, err := c.client.Get(ctx, planKey(id))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

// StorePlan caches a plan payload under its ID
func (c *RedisPlanCache) StorePlan(ctx context.Context, id uuid.UUID, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, planKey(id), payload, ttl)
}

// GetByFingerprint fetches a cached plan by request fingerprint. A miss
// returns a nil payload with no error.
func (c *RedisPlanCache) GetByFingerprint(ctx context.Context, fingerprint string) ([]byte, error) {
	payload, err := c.client.Get(ctx, fingerprintKey(fingerprint))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

// StoreByFingerprint caches a plan payload under its request fingerprint
func (c *RedisPlanCache) StoreByFingerprint(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, fingerprintKey(fingerprint), payload, ttl)
}

// Invalidate drops a cached plan by ID
func (c *RedisPlanCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Delete(ctx, planKey(id))
}

func planKey(id uuid.UUID) string {
	return planKeyPrefix + id.String()
}

func fingerprintKey(fingerprint string) string {
	return fingerprintKeyPrefix + fingerprint
}
