// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the use-case surfaces the transport layers call into
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/outbound"
)

// PlanningService is the public planning API: build a cart plan from a
// recipe's ingredient list and read it back.
type PlanningService interface {
	// CreatePlan runs the decision engine for the command and returns
	// the full plan envelope. Identical requests against an unchanged
	// catalog are served from cache.
	CreatePlan(ctx context.Context, cmd CreatePlanCommand) (*PlanEnvelope, error)

	// GetPlan fetches a previously created plan by its ID.
	GetPlan(ctx context.Context, id uuid.UUID) (*PlanEnvelope, error)

	// ListStores returns the store roster behind the catalog.
	ListStores(ctx context.Context) ([]StoreView, error)

	// IngredientCoverage reports how many candidates each store offers
	// for one ingredient, before any constraint runs.
	IngredientCoverage(ctx context.Context, name string) (*CoverageReport, error)
}

// CatalogAdminService is the operator API surface: catalog lifecycle
// and safety facts.
type CatalogAdminService interface {
	// ReloadCatalog re-reads the catalog source and reports the new
	// generation.
	ReloadCatalog(ctx context.Context) (*outbound.CatalogStats, error)

	// CatalogStatus describes the loaded catalog without reloading.
	CatalogStatus(ctx context.Context) (*outbound.CatalogStats, error)

	// RecordRecall marks an ingredient or brand recalled or clears it.
	RecordRecall(ctx context.Context, cmd RecordRecallCommand) error

	// SetResidueCategory assigns the pesticide-residue bucket used by
	// the scorer.
	SetResidueCategory(ctx context.Context, cmd SetResidueCommand) error

	// ActiveRecalls lists everything currently recalled.
	ActiveRecalls(ctx context.Context) ([]outbound.RecallRecord, error)
}

// CreatePlanCommand carries the planning request from transport.
type CreatePlanCommand struct {
	Ingredients []IngredientInput `json:"ingredients" validate:"required,min=1,max=100,dive"`
	Servings    int               `json:"servings" validate:"required,gt=0"`
}

// IngredientInput is one requested recipe line as submitted.
type IngredientInput struct {
	Name     string `json:"name" validate:"required,ingredient_name"`
	Form     string `json:"form,omitempty" validate:"omitempty,ingredient_form"`
	Quantity string `json:"quantity,omitempty" validate:"omitempty,max=40"`
}

// RecordRecallCommand upserts a recall fact.
type RecordRecallCommand struct {
	Subject string `json:"subject" validate:"required,fact_subject"`
	Status  string `json:"status" validate:"required,oneof=safe recalled"`
}

// SetResidueCommand upserts a residue fact.
type SetResidueCommand struct {
	Ingredient string `json:"ingredient" validate:"required,fact_subject"`
	Category   string `json:"category" validate:"required,oneof=high_residue low_residue middle unknown"`
}

// PlanEnvelope wraps the deterministic plan with delivery metadata.
// The engine output inside is byte-stable for identical inputs; the
// envelope is where identity and time live.
type PlanEnvelope struct {
	PlanID      uuid.UUID         `json:"plan_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Cached      bool              `json:"cached"`
	CatalogHash string            `json:"catalog_hash"`
	Plan        planning.CartPlan `json:"plan"`
}

// StoreView is the transport shape of one store.
type StoreView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	DeliveryDays int    `json:"delivery_days"`
}

// CoverageReport answers "who stocks this" for one ingredient.
type CoverageReport struct {
	Ingredient string          `json:"ingredient"`
	Key        string          `json:"key"`
	Total      int             `json:"total"`
	PerStore   []StoreCoverage `json:"per_store"`
}

// StoreCoverage is one store's slice of a coverage report.
type StoreCoverage struct {
	StoreID    string `json:"store_id"`
	StoreName  string `json:"store_name"`
	Candidates int    `json:"candidates"`
}
