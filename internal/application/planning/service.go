// Package planning provides the application layer for cart planning
// This implements the use cases defined in the inbound ports
package planning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/cartwise/v3/pkg/errors"
)

// defaultPlanTTL bounds how long rendered plans stay retrievable.
const defaultPlanTTL = time.Hour

// PlanningService implements the public planning use cases. It owns the
// synchronization point of a plan run: every pool and fact is fetched
// up front, then the pure pipeline decides without further I/O.
type PlanningService struct {
	index    outbound.ProductIndex
	facts    outbound.FactsRepository
	cache    outbound.PlanCache
	pipeline *planning.Pipeline
	planTTL  time.Duration
	logger   *zap.Logger
}

// NewPlanningService creates a new planning service
func NewPlanningService(
	index outbound.ProductIndex,
	facts outbound.FactsRepository,
	cache outbound.PlanCache,
	engineConfig planning.EngineConfig,
	brands catalog.BrandRegistry,
	planTTL time.Duration,
	logger *zap.Logger,
) inbound.PlanningService {
	if planTTL <= 0 {
		planTTL = defaultPlanTTL
	}
	return &PlanningService{
		index:    index,
		facts:    facts,
		cache:    cache,
		pipeline: planning.NewPipeline(engineConfig, brands),
		planTTL:  planTTL,
		logger:   logger.Named("planning-service"),
	}
}

// CreatePlan builds a cart plan for the command
func (s *PlanningService) CreatePlan(ctx context.Context, cmd inbound.CreatePlanCommand) (*inbound.PlanEnvelope, error) {
	s.logger.Info("Creating cart plan",
		zap.Int("ingredients", len(cmd.Ingredients)),
		zap.Int("servings", cmd.Servings),
	)

	req := commandToRequest(cmd)
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}

	catalogHash, err := s.index.Fingerprint(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}

	fingerprint := requestFingerprint(req, catalogHash)
	if envelope := s.cachedByFingerprint(ctx, fingerprint); envelope != nil {
		s.logger.Debug("Serving plan from cache",
			zap.String("plan_id", envelope.PlanID.String()),
			zap.String("fingerprint", fingerprint),
		)
		envelope.Cached = true
		return envelope, nil
	}

	// Synchronization point: all retrieval happens here, before the
	// pipeline runs.
	pools, err := s.index.RetrieveAll(ctx, req.UniqueKeys())
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	stores, err := s.index.Stores(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	facts, err := s.facts.Snapshot(ctx, req.UniqueKeys(), brandKeys(pools))
	if err != nil {
		return nil, errors.NewFactsUnavailableError(err)
	}

	cartPlan, err := s.pipeline.Plan(req, pools, stores, facts)
	if err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}

	envelope := &inbound.PlanEnvelope{
		PlanID:      uuid.New(),
		GeneratedAt: time.Now().UTC(),
		CatalogHash: catalogHash,
		Plan:        *cartPlan,
	}
	s.storePlan(ctx, envelope, fingerprint)

	s.logger.Info("Cart plan created",
		zap.String("plan_id", envelope.PlanID.String()),
		zap.Int("stores", len(cartPlan.StorePlan.Stores)),
		zap.Int("items", len(cartPlan.Items)),
		zap.Int("unavailable", len(cartPlan.StorePlan.Unavailable)),
		zap.Float64("ethical_total", cartPlan.Totals.Ethical),
	)
	return envelope, nil
}

// GetPlan fetches a previously created plan by ID
func (s *PlanningService) GetPlan(ctx context.Context, id uuid.UUID) (*inbound.PlanEnvelope, error) {
	payload, err := s.cache.GetPlan(ctx, id)
	if err != nil || payload == nil {
		return nil, errors.NewPlanNotFoundError(id.String())
	}

	var envelope inbound.PlanEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Error("Cached plan payload is corrupt",
			zap.String("plan_id", id.String()),
			zap.Error(err),
		)
		return nil, errors.NewPlanNotFoundError(id.String())
	}
	return &envelope, nil
}

// ListStores returns the store roster behind the catalog
func (s *PlanningService) ListStores(ctx context.Context) ([]inbound.StoreView, error) {
	stores, err := s.index.Stores(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}

	views := make([]inbound.StoreView, 0, len(stores))
	for _, st := range stores {
		views = append(views, inbound.StoreView{
			ID:           st.ID,
			Name:         st.Name,
			Kind:         string(st.Kind),
			DeliveryDays: st.DeliveryDays,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

// IngredientCoverage reports per-store candidate counts for one
// ingredient, before any constraint runs
func (s *PlanningService) IngredientCoverage(ctx context.Context, name string) (*inbound.CoverageReport, error) {
	key := catalog.NormalizeKey(name)
	pool, err := s.index.Retrieve(ctx, key)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	stores, err := s.index.Stores(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}

	counts := make(map[string]int, len(stores))
	for _, c := range pool {
		counts[c.SourceStoreID]++
	}

	report := &inbound.CoverageReport{
		Ingredient: name,
		Key:        key,
		Total:      len(pool),
		PerStore:   make([]inbound.StoreCoverage, 0, len(stores)),
	}
	for _, st := range stores {
		report.PerStore = append(report.PerStore, inbound.StoreCoverage{
			StoreID:    st.ID,
			StoreName:  st.Name,
			Candidates: counts[st.ID],
		})
	}
	sort.Slice(report.PerStore, func(i, j int) bool {
		return report.PerStore[i].StoreID < report.PerStore[j].StoreID
	})
	return report, nil
}

// Helper methods

// commandToRequest maps the transport command onto the domain request.
// Unrecognized form strings degrade to no form information rather than
// failing the request.
func commandToRequest(cmd inbound.CreatePlanCommand) planning.PlanRequest {
	ingredients := make([]planning.IngredientRequest, 0, len(cmd.Ingredients))
	for _, in := range cmd.Ingredients {
		form := catalog.ParseForm(in.Form)
		ingredients = append(ingredients, planning.IngredientRequest{
			Name:     in.Name,
			Form:     form,
			Quantity: in.Quantity,
		})
	}
	return planning.PlanRequest{Ingredients: ingredients, Servings: cmd.Servings}
}

// requestFingerprint keys the plan cache on the exact request against
// the exact catalog generation.
func requestFingerprint(req planning.PlanRequest, catalogHash string) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(append(payload, []byte("|"+catalogHash)...))
	return hex.EncodeToString(sum[:])
}

// brandKeys collects the brand keys present in the pools so the fact
// snapshot covers brand-level recalls. Brands go through NormalizeKey
// because that is the canonical form recall facts are stored under.
func brandKeys(pools map[string][]catalog.Candidate) []string {
	seen := map[string]bool{}
	keys := make([]string, 0)
	for _, pool := range pools {
		for _, c := range pool {
			brand := catalog.NormalizeKey(c.Brand)
			if brand == "" || seen[brand] {
				continue
			}
			seen[brand] = true
			keys = append(keys, brand)
		}
	}
	sort.Strings(keys)
	return keys
}

// cachedByFingerprint returns the cached envelope for a fingerprint, or
// nil on any miss or decode problem. Cache trouble never fails a plan.
func (s *PlanningService) cachedByFingerprint(ctx context.Context, fingerprint string) *inbound.PlanEnvelope {
	payload, err := s.cache.GetByFingerprint(ctx, fingerprint)
	if err != nil || payload == nil {
		return nil
	}
	var envelope inbound.PlanEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}
	return &envelope
}

// storePlan writes the envelope under both key spaces. Failures are
// logged and swallowed; the plan still goes back to the caller.
func (s *PlanningService) storePlan(ctx context.Context, envelope *inbound.PlanEnvelope, fingerprint string) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Error("Failed to serialize plan for cache", zap.Error(err))
		return
	}
	if err := s.cache.StorePlan(ctx, envelope.PlanID, payload, s.planTTL); err != nil {
		s.logger.Warn("Failed to cache plan by ID",
			zap.String("plan_id", envelope.PlanID.String()),
			zap.Error(err),
		)
	}
	if err := s.cache.StoreByFingerprint(ctx, fingerprint, payload, s.planTTL); err != nil {
		s.logger.Warn("Failed to cache plan by fingerprint",
			zap.String("fingerprint", fingerprint),
			zap.Error(err),
		)
	}
}
