// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/outbound"
)

// MockProductIndex provides a mock implementation of ProductIndex
type MockProductIndex struct {
	mock.Mock
}

// NewMockProductIndex creates a new mock product index
func NewMockProductIndex() *MockProductIndex {
	return &MockProductIndex{}
}

// Retrieve returns the configured pool for one ingredient key
func (m *MockProductIndex) Retrieve(ctx context.Context, ingredientKey string) ([]catalog.Candidate, error) {
	args := m.Called(ctx, ingredientKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Candidate), args.Error(1)
}

// RetrieveAll returns the configured pools for several keys
func (m *MockProductIndex) RetrieveAll(ctx context.Context, ingredientKeys []string) (map[string][]catalog.Candidate, error) {
	args := m.Called(ctx, ingredientKeys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]catalog.Candidate), args.Error(1)
}

// Stores returns the configured store roster
func (m *MockProductIndex) Stores(ctx context.Context) ([]catalog.Store, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Store), args.Error(1)
}

// Fingerprint returns the configured catalog fingerprint
func (m *MockProductIndex) Fingerprint(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockFactsRepository provides a mock implementation of FactsRepository
type MockFactsRepository struct {
	mock.Mock
}

// NewMockFactsRepository creates a new mock facts repository
func NewMockFactsRepository() *MockFactsRepository {
	return &MockFactsRepository{}
}

// Snapshot returns the configured fact snapshot
func (m *MockFactsRepository) Snapshot(ctx context.Context, ingredientKeys, brandKeys []string) (planning.StaticFacts, error) {
	args := m.Called(ctx, ingredientKeys, brandKeys)
	return args.Get(0).(planning.StaticFacts), args.Error(1)
}

// RecallStatus returns the configured recall status
func (m *MockFactsRepository) RecallStatus(ctx context.Context, key string) (planning.RecallStatus, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(planning.RecallStatus), args.Error(1)
}

// ResidueCategory returns the configured residue category
func (m *MockFactsRepository) ResidueCategory(ctx context.Context, key string) (planning.ResidueCategory, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(planning.ResidueCategory), args.Error(1)
}

// RecordRecall records a recall fact
func (m *MockFactsRepository) RecordRecall(ctx context.Context, key string, status planning.RecallStatus) error {
	args := m.Called(ctx, key, status)
	return args.Error(0)
}

// SetResidueCategory records a residue fact
func (m *MockFactsRepository) SetResidueCategory(ctx context.Context, key string, category planning.ResidueCategory) error {
	args := m.Called(ctx, key, category)
	return args.Error(0)
}

// ActiveRecalls lists configured recall records
func (m *MockFactsRepository) ActiveRecalls(ctx context.Context) ([]outbound.RecallRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]outbound.RecallRecord), args.Error(1)
}

// MockPlanCache provides a stateful mock implementation of PlanCache.
// Stored payloads are kept in memory so round trips behave like a real
// cache while expectations stay assertable.
type MockPlanCache struct {
	mock.Mock
	mu            sync.RWMutex
	byID          map[uuid.UUID][]byte
	byFingerprint map[string][]byte
}

// NewMockPlanCache creates a new mock plan cache
func NewMockPlanCache() *MockPlanCache {
	return &MockPlanCache{
		byID:          make(map[uuid.UUID][]byte),
		byFingerprint: make(map[string][]byte),
	}
}

// GetPlan returns a stored plan payload
func (m *MockPlanCache) GetPlan(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id], nil
}

// StorePlan stores a plan payload by ID
func (m *MockPlanCache) StorePlan(ctx context.Context, id uuid.UUID, payload []byte, ttl time.Duration) error {
	args := m.Called(ctx, id, payload, ttl)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.byID[id] = payload
		m.mu.Unlock()
	}
	return args.Error(0)
}

// GetByFingerprint returns a stored plan payload by request fingerprint
func (m *MockPlanCache) GetByFingerprint(ctx context.Context, fingerprint string) ([]byte, error) {
	args := m.Called(ctx, fingerprint)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byFingerprint[fingerprint], nil
}

// StoreByFingerprint stores a plan payload by request fingerprint
func (m *MockPlanCache) StoreByFingerprint(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	args := m.Called(ctx, fingerprint, payload, ttl)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.byFingerprint[fingerprint] = payload
		m.mu.Unlock()
	}
	return args.Error(0)
}

// Invalidate drops a stored plan
func (m *MockPlanCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	if args.Error(0) == nil {
		m.mu.Lock()
		delete(m.byID, id)
		m.mu.Unlock()
	}
	return args.Error(0)
}

// SetupPassthroughBehavior makes every cache operation succeed.
func (m *MockPlanCache) SetupPassthroughBehavior() {
	m.On("GetPlan", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil, nil)
	m.On("StorePlan", mock.Anything, mock.AnythingOfType("uuid.UUID"), mock.Anything, mock.Anything).Return(nil)
	m.On("GetByFingerprint", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	m.On("StoreByFingerprint", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(nil)
	m.On("Invalidate", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil)
}

// MockCatalogAdmin provides a mock implementation of CatalogAdmin
type MockCatalogAdmin struct {
	mock.Mock
}

// NewMockCatalogAdmin creates a new mock catalog admin
func NewMockCatalogAdmin() *MockCatalogAdmin {
	return &MockCatalogAdmin{}
}

// Reload reloads the catalog
func (m *MockCatalogAdmin) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stats describes the loaded catalog
func (m *MockCatalogAdmin) Stats(ctx context.Context) (outbound.CatalogStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(outbound.CatalogStats), args.Error(1)
}
