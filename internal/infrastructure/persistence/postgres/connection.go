// Package postgres provides PostgreSQL connection management and the
// pgx-backed facts repository
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// ConnectionManager manages the PostgreSQL connection pool for the facts
// store
type ConnectionManager struct {
	config  *config.Config
	logger  *zap.Logger
	pool    *pgxpool.Pool
	metrics *ConnectionMetrics
	done    chan struct{}
}

// ConnectionConfig holds connection pool configuration
type ConnectionConfig struct {
	MaxConns          int32         `json:"max_conns"`
	MinConns          int32         `json:"min_conns"`
	MaxConnLifetime   time.Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `json:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `json:"health_check_period"`
	ConnectTimeout    time.Duration `json:"connect_timeout"`
	MetricsInterval   time.Duration `json:"metrics_interval"`
}

// DefaultConnectionConfig returns defaults sized for the facts workload,
// which is point lookups on two small reference tables.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxConns:          25,
		MinConns:          2,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
		MetricsInterval:   10 * time.Second,
	}
}

// NewConnectionManager creates a connection manager and verifies the
// database is reachable
func NewConnectionManager(cfg *config.Config, log *zap.Logger) (*ConnectionManager, error) {
	connConfig := DefaultConnectionConfig()

	// Override defaults with config values
	if cfg.Database.MaxOpenConns > 0 {
		connConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		connConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		connConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		connConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = connConfig.MaxConns
	poolConfig.MinConns = connConfig.MinConns
	poolConfig.MaxConnLifetime = connConfig.MaxConnLifetime
	poolConfig.MaxConnIdleTime = connConfig.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = connConfig.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), connConfig.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cm := &ConnectionManager{
		config:  cfg,
		logger:  log,
		pool:    pool,
		metrics: NewConnectionMetrics(),
		done:    make(chan struct{}),
	}

	go cm.startMetricsCollection(connConfig.MetricsInterval)

	log.Info("Database connection manager initialized",
		zap.Int32("max_conns", connConfig.MaxConns),
		zap.Int32("min_conns", connConfig.MinConns),
		zap.Duration("max_conn_lifetime", connConfig.MaxConnLifetime),
	)

	return cm, nil
}

// Pool returns the pgx connection pool
func (cm *ConnectionManager) Pool() *pgxpool.Pool {
	return cm.pool
}

// SQLDB returns a database/sql view of the pool for tooling that expects
// one, such as the migrator and health checks.
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return stdlib.OpenDBFromPool(cm.pool)
}

// GetMetrics returns connection metrics
func (cm *ConnectionManager) GetMetrics() *ConnectionMetrics {
	return cm.metrics
}

// HealthCheck performs a health check on the database connection
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close stops metrics collection and closes the pool
func (cm *ConnectionManager) Close() error {
	close(cm.done)
	cm.pool.Close()
	return nil
}

// startMetricsCollection starts periodic metrics collection
func (cm *ConnectionManager) startMetricsCollection(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.done:
			return
		case <-ticker.C:
			cm.metrics.UpdatePoolStats(cm.pool.Stat())
		}
	}
}
