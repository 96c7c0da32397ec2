package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/google/uuid"
)

const defaultPlanTTL = 24 * time.Hour

// cacheItem is a cached payload with its expiry
type cacheItem struct {
	payload   []byte
	expiresAt time.Time
}

// PlanCache is an in-process plan cache used when Redis is disabled, and
// by the CLI which runs a single plan and exits.
type PlanCache struct {
	mu   sync.RWMutex
	data map[string]cacheItem
	done chan struct{}
}

// NewPlanCache creates an in-memory plan cache with background expiry
func NewPlanCache() *PlanCache {
	cache := &PlanCache{
		data: make(map[string]cacheItem),
		done: make(chan struct{}),
	}
	go cache.cleanup()
	return cache
}

var _ outbound.PlanCache = (*PlanCache)(nil)

// GetPlan fetches a cached plan by ID. A miss returns a nil payload with
// no error.
func (c *PlanCache) GetPlan(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.get("id:" + id.String()), nil
}

// StorePlan caches a plan payload under its ID
func (c *PlanCache) StorePlan(ctx context.Context, id uuid.UUID, payload []byte, ttl time.Duration) error {
	c.set("id:"+id.String(), payload, ttl)
	return nil
}

// GetByFingerprint fetches a cached plan by request fingerprint
func (c *PlanCache) GetByFingerprint(ctx context.Context, fingerprint string) ([]byte, error) {
	return c.get("fp:" + fingerprint), nil
}

// StoreByFingerprint caches a plan payload under its request fingerprint
func (c *PlanCache) StoreByFingerprint(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	c.set("fp:"+fingerprint, payload, ttl)
	return nil
}

// Invalidate drops a cached plan by ID
func (c *PlanCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, "id:"+id.String())
	return nil
}

// Close stops the background expiry loop
func (c *PlanCache) Close() {
	close(c.done)
}

func (c *PlanCache) get(key string) []byte {
	c.mu.RLock()
	item, exists := c.data[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(item.expiresAt) {
		return nil
	}
	return item.payload
}

func (c *PlanCache) set(key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultPlanTTL
	}

	// Copy so later mutation of the caller's buffer cannot corrupt the
	// cached payload.
	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	c.data[key] = cacheItem{
		payload:   stored,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *PlanCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, item := range c.data {
				if now.After(item.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
