package planning

import (
	"context"

	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
	domainplanning "github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/cartwise/v3/pkg/errors"
)

// CatalogAdminService implements the operator use cases: catalog
// lifecycle and the recall/residue facts the engine consults.
type CatalogAdminService struct {
	catalogAdmin outbound.CatalogAdmin
	facts        outbound.FactsRepository
	logger       *zap.Logger
}

// NewCatalogAdminService creates a new catalog admin service
func NewCatalogAdminService(
	catalogAdmin outbound.CatalogAdmin,
	facts outbound.FactsRepository,
	logger *zap.Logger,
) inbound.CatalogAdminService {
	return &CatalogAdminService{
		catalogAdmin: catalogAdmin,
		facts:        facts,
		logger:       logger.Named("catalog-admin-service"),
	}
}

// ReloadCatalog re-reads the catalog source and swaps the live index
func (s *CatalogAdminService) ReloadCatalog(ctx context.Context) (*outbound.CatalogStats, error) {
	s.logger.Info("Reloading catalog on operator request")

	if err := s.catalogAdmin.Reload(ctx); err != nil {
		return nil, errors.NewCatalogLoadError("operator reload", err)
	}

	stats, err := s.catalogAdmin.Stats(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}

	s.logger.Info("Catalog reloaded",
		zap.Int("products", stats.Products),
		zap.Int("stores", stats.Stores),
		zap.Uint64("generation", stats.Generation),
		zap.String("fingerprint", stats.Fingerprint),
	)
	return &stats, nil
}

// CatalogStatus describes the loaded catalog without reloading
func (s *CatalogAdminService) CatalogStatus(ctx context.Context) (*outbound.CatalogStats, error) {
	stats, err := s.catalogAdmin.Stats(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	return &stats, nil
}

// RecordRecall upserts a recall fact for an ingredient or brand
func (s *CatalogAdminService) RecordRecall(ctx context.Context, cmd inbound.RecordRecallCommand) error {
	status, ok := domainplanning.ParseRecallStatus(cmd.Status)
	if !ok || status == domainplanning.RecallStatusUnknown {
		return errors.NewInvalidRequestError("recall status must be safe or recalled")
	}
	if cmd.Subject == "" {
		return errors.NewInvalidRequestError("recall subject is required")
	}

	key := catalog.NormalizeKey(cmd.Subject)
	if err := s.facts.RecordRecall(ctx, key, status); err != nil {
		return errors.NewFactsUnavailableError(err)
	}

	s.logger.Info("Recall fact recorded",
		zap.String("subject", key),
		zap.String("status", string(status)),
	)
	return nil
}

// SetResidueCategory upserts the residue bucket for an ingredient
func (s *CatalogAdminService) SetResidueCategory(ctx context.Context, cmd inbound.SetResidueCommand) error {
	category, ok := domainplanning.ParseResidueCategory(cmd.Category)
	if !ok {
		return errors.NewInvalidRequestError("unrecognized residue category")
	}
	if cmd.Ingredient == "" {
		return errors.NewInvalidRequestError("ingredient is required")
	}

	key := catalog.NormalizeKey(cmd.Ingredient)
	if err := s.facts.SetResidueCategory(ctx, key, category); err != nil {
		return errors.NewFactsUnavailableError(err)
	}

	s.logger.Info("Residue category set",
		zap.String("ingredient", key),
		zap.String("category", string(category)),
	)
	return nil
}

// ActiveRecalls lists everything currently marked recalled
func (s *CatalogAdminService) ActiveRecalls(ctx context.Context) ([]outbound.RecallRecord, error) {
	records, err := s.facts.ActiveRecalls(ctx)
	if err != nil {
		return nil, errors.NewFactsUnavailableError(err)
	}
	return records, nil
}
