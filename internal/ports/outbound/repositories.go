// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/domain/planning"
)

// ProductIndex is the retrieval surface over the loaded catalog.
// Retrieval is deliberately complete: every store's candidates come
// back in one pool so the store planner sees the whole market before
// any constraint runs.
type ProductIndex interface {
	// Retrieve returns every candidate matching the normalized
	// ingredient key across all stores. A missing ingredient returns an
	// empty pool, not an error.
	Retrieve(ctx context.Context, ingredientKey string) ([]catalog.Candidate, error)

	// RetrieveAll resolves several keys in one pass.
	RetrieveAll(ctx context.Context, ingredientKeys []string) (map[string][]catalog.Candidate, error)

	// Stores lists the known store roster.
	Stores(ctx context.Context) ([]catalog.Store, error)

	// Fingerprint identifies the loaded catalog generation. Plan cache
	// keys include it so a reload invalidates every cached plan.
	Fingerprint(ctx context.Context) (string, error)
}

// CatalogAdmin covers operational control of the product index.
type CatalogAdmin interface {
	// Reload re-reads the catalog from its source and swaps the index
	// atomically.
	Reload(ctx context.Context) error

	// Stats describes the currently loaded catalog.
	Stats(ctx context.Context) (CatalogStats, error)
}

// CatalogStats describes one loaded catalog generation.
type CatalogStats struct {
	Products    int       `json:"products"`
	Stores      int       `json:"stores"`
	RowsSkipped int       `json:"rows_skipped"`
	Generation  uint64    `json:"generation"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
	Source      string    `json:"source"`
}

// CatalogSource fetches raw catalog bytes from wherever they live.
// Implementations cover local files and object storage.
type CatalogSource interface {
	// Fetch opens the catalog payload and reports a version marker
	// (mtime, ETag) for change detection. The caller closes the reader.
	Fetch(ctx context.Context) (io.ReadCloser, string, error)

	// Describe names the source for logs and status endpoints.
	Describe() string
}

// FactsRepository persists the safety and residue facts consulted
// during planning.
type FactsRepository interface {
	// Snapshot prefetches every fact the given ingredient keys and
	// brand keys can touch, as an immutable view for one pipeline run.
	Snapshot(ctx context.Context, ingredientKeys, brandKeys []string) (planning.StaticFacts, error)

	RecallStatus(ctx context.Context, key string) (planning.RecallStatus, error)
	ResidueCategory(ctx context.Context, key string) (planning.ResidueCategory, error)

	// RecordRecall upserts the recall state for an ingredient or brand
	// key.
	RecordRecall(ctx context.Context, key string, status planning.RecallStatus) error

	// SetResidueCategory upserts the residue bucket for an ingredient
	// key.
	SetResidueCategory(ctx context.Context, key string, category planning.ResidueCategory) error

	// ActiveRecalls lists every key currently marked recalled.
	ActiveRecalls(ctx context.Context) ([]RecallRecord, error)
}

// RecallRecord is one persisted recall row.
type RecallRecord struct {
	Key       string                `json:"key"`
	Status    planning.RecallStatus `json:"status"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// PlanCache stores rendered plan envelopes. Two key spaces exist: plan
// IDs for retrieval by reference, and request fingerprints so an
// identical request against the same catalog generation is served
// without re-planning.
type PlanCache interface {
	GetPlan(ctx context.Context, id uuid.UUID) ([]byte, error)
	StorePlan(ctx context.Context, id uuid.UUID, payload []byte, ttl time.Duration) error

	GetByFingerprint(ctx context.Context, fingerprint string) ([]byte, error)
	StoreByFingerprint(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error

	// Invalidate drops a cached plan by ID.
	Invalidate(ctx context.Context, id uuid.UUID) error
}
