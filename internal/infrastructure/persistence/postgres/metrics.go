package postgres

import (
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSnapshot holds a point-in-time view of connection pool statistics
type PoolSnapshot struct {
	// Connection Pool Metrics
	TotalConns    int32 `json:"total_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`

	// Acquire Metrics
	AcquireCount         int64         `json:"acquire_count"`
	AcquireDuration      time.Duration `json:"acquire_duration"`
	EmptyAcquireCount    int64         `json:"empty_acquire_count"`
	CanceledAcquireCount int64         `json:"canceled_acquire_count"`

	LastUpdated time.Time `json:"last_updated"`
}

// ConnectionMetrics tracks connection pool statistics for the facts store
type ConnectionMetrics struct {
	mu       sync.RWMutex
	snapshot PoolSnapshot
}

// NewConnectionMetrics creates a new metrics instance
func NewConnectionMetrics() *ConnectionMetrics {
	return &ConnectionMetrics{
		snapshot: PoolSnapshot{LastUpdated: time.Now()},
	}
}

// UpdatePoolStats updates connection pool statistics from a pgx pool
func (m *ConnectionMetrics) UpdatePoolStats(stats *pgxpool.Stat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = PoolSnapshot{
		TotalConns:           stats.TotalConns(),
		AcquiredConns:        stats.AcquiredConns(),
		IdleConns:            stats.IdleConns(),
		MaxConns:             stats.MaxConns(),
		AcquireCount:         stats.AcquireCount(),
		AcquireDuration:      stats.AcquireDuration(),
		EmptyAcquireCount:    stats.EmptyAcquireCount(),
		CanceledAcquireCount: stats.CanceledAcquireCount(),
		LastUpdated:          time.Now(),
	}
}

// GetSnapshot returns a snapshot of current metrics
func (m *ConnectionMetrics) GetSnapshot() PoolSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
