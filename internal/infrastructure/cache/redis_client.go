// Package cache provides the Redis-backed plan cache
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrKeyNotFound reports a cache miss
var ErrKeyNotFound = fmt.Errorf("key not found in cache")

// ErrCircuitOpen reports that the circuit breaker is rejecting commands
var ErrCircuitOpen = fmt.Errorf("redis circuit breaker is open")

// RedisClient wraps the go-redis client with circuit breaker protection
// and health monitoring
type RedisClient struct {
	client         redis.UniversalClient
	config         *config.RedisConfig
	logger         *zap.Logger
	metrics        *RedisMetrics
	healthCheck    *HealthCheck
	circuitBreaker *CircuitBreaker
}

// RedisMetrics tracks Redis performance and health
type RedisMetrics struct {
	mu sync.RWMutex

	TotalCommands    int64         `json:"total_commands"`
	SuccessfulOps    int64         `json:"successful_ops"`
	FailedOps        int64         `json:"failed_ops"`
	AvgResponseTime  time.Duration `json:"avg_response_time"`
	ConnectionErrors int64         `json:"connection_errors"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	LastUpdate       time.Time     `json:"last_update"`
}

// HealthCheck monitors Redis connection health
type HealthCheck struct {
	mu sync.RWMutex

	IsHealthy bool      `json:"is_healthy"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`

	checkInterval time.Duration
	timeout       time.Duration
	checkTicker   *time.Ticker
	stopChan      chan struct{}
}

// CircuitBreaker trips after consecutive failures so a dead Redis does
// not add per-request timeouts to every plan
type CircuitBreaker struct {
	mu sync.Mutex

	maxFailures     int
	timeout         time.Duration
	failures        int
	lastFailureTime time.Time
	state           CircuitState
}

// CircuitState represents circuit breaker states
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// NewCircuitBreaker creates a circuit breaker that opens after maxFailures
// consecutive failures and probes again after timeout
func NewCircuitBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		state:       CircuitClosed,
	}
}

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(cfg *config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	opts := &redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,

		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: 5 * time.Minute,
		PoolTimeout:     10 * time.Second,
	}

	client := redis.NewUniversalClient(opts)

	redisClient := &RedisClient{
		client:  client,
		config:  cfg,
		logger:  logger.Named("redis"),
		metrics: &RedisMetrics{LastUpdate: time.Now()},
		healthCheck: &HealthCheck{
			checkInterval: 30 * time.Second,
			timeout:       5 * time.Second,
			stopChan:      make(chan struct{}),
		},
		circuitBreaker: NewCircuitBreaker(5, 30*time.Second),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	redisClient.startHealthCheck()

	logger.Info("Redis client initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database),
	)

	return redisClient, nil
}

// Ping tests the Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	if !r.circuitBreaker.AllowRequest() {
		return ErrCircuitOpen
	}

	start := time.Now()
	err := r.client.Ping(ctx).Err()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis ping failed", zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// Get retrieves a value. A missing key returns ErrKeyNotFound.
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	if !r.circuitBreaker.AllowRequest() {
		r.metrics.incrementCacheMiss()
		return nil, ErrCircuitOpen
	}

	start := time.Now()
	result, err := r.client.Get(ctx, key).Bytes()
	r.updateMetrics(err, time.Since(start))

	if err == redis.Nil {
		r.metrics.incrementCacheMiss()
		return nil, ErrKeyNotFound
	}
	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.metrics.incrementCacheMiss()
		r.logger.Error("Redis GET failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	r.circuitBreaker.RecordSuccess()
	r.metrics.incrementCacheHit()
	return result, nil
}

// Set stores a value with a TTL
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !r.circuitBreaker.AllowRequest() {
		return ErrCircuitOpen
	}

	start := time.Now()
	err := r.client.Set(ctx, key, value, ttl).Err()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis SET failed", zap.String("key", key), zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// Delete removes keys
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if !r.circuitBreaker.AllowRequest() {
		return ErrCircuitOpen
	}

	start := time.Now()
	err := r.client.Del(ctx, keys...).Err()
	r.updateMetrics(err, time.Since(start))

	if err != nil {
		r.circuitBreaker.RecordFailure()
		r.logger.Error("Redis DEL failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}

	r.circuitBreaker.RecordSuccess()
	return nil
}

// GetMetrics returns a copy of the current Redis metrics
func (r *RedisClient) GetMetrics() RedisMetrics {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()

	return RedisMetrics{
		TotalCommands:    r.metrics.TotalCommands,
		SuccessfulOps:    r.metrics.SuccessfulOps,
		FailedOps:        r.metrics.FailedOps,
		AvgResponseTime:  r.metrics.AvgResponseTime,
		ConnectionErrors: r.metrics.ConnectionErrors,
		CacheHits:        r.metrics.CacheHits,
		CacheMisses:      r.metrics.CacheMisses,
		LastUpdate:       r.metrics.LastUpdate,
	}
}

// Client exposes the underlying go-redis client for health probes
func (r *RedisClient) Client() redis.UniversalClient {
	return r.client
}

// Healthy reports the result of the last background health check
func (r *RedisClient) Healthy() bool {
	r.healthCheck.mu.RLock()
	defer r.healthCheck.mu.RUnlock()
	return r.healthCheck.IsHealthy
}

// Close stops the health check loop and closes the connection
func (r *RedisClient) Close() error {
	close(r.healthCheck.stopChan)
	if r.healthCheck.checkTicker != nil {
		r.healthCheck.checkTicker.Stop()
	}
	return r.client.Close()
}

func (r *RedisClient) updateMetrics(err error, duration time.Duration) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()

	r.metrics.TotalCommands++
	if err != nil {
		r.metrics.FailedOps++
		if err != redis.Nil {
			r.metrics.ConnectionErrors++
		}
	} else {
		r.metrics.SuccessfulOps++
	}

	// Exponential moving average, alpha 0.1
	if r.metrics.TotalCommands == 1 {
		r.metrics.AvgResponseTime = duration
	} else {
		alpha := 0.1
		r.metrics.AvgResponseTime = time.Duration(float64(r.metrics.AvgResponseTime)*(1-alpha) + float64(duration)*alpha)
	}

	r.metrics.LastUpdate = time.Now()
}

func (m *RedisMetrics) incrementCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *RedisMetrics) incrementCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (r *RedisClient) startHealthCheck() {
	r.healthCheck.checkTicker = time.NewTicker(r.healthCheck.checkInterval)

	go func() {
		for {
			select {
			case <-r.healthCheck.checkTicker.C:
				r.performHealthCheck()
			case <-r.healthCheck.stopChan:
				return
			}
		}
	}()
}

func (r *RedisClient) performHealthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), r.healthCheck.timeout)
	defer cancel()

	err := r.Ping(ctx)

	r.healthCheck.mu.Lock()
	r.healthCheck.LastCheck = time.Now()
	r.healthCheck.IsHealthy = err == nil
	if err != nil {
		r.healthCheck.LastError = err.Error()
	} else {
		r.healthCheck.LastError = ""
	}
	r.healthCheck.mu.Unlock()
}

// AllowRequest checks if commands are allowed in the current circuit state.
// An open circuit transitions to half-open once the probe timeout elapses.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess closes the circuit and resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure and opens the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
