// Package planning implements the grocery decision engine: store
// selection, constraint filtering, component scoring, and cart
// assembly. Every stage is a pure function over in-memory inputs, so a
// given request, catalog, and fact snapshot always produce the
// identical plan.
package planning

import "github.com/cartwise/v3/internal/domain/catalog"

// ingredientOutcome carries one unique ingredient's routing, ranking,
// and trace between the decision stages and the assembler.
type ingredientOutcome struct {
	request   IngredientRequest
	storeID   string
	selection *Selection
	trace     DecisionTrace
}

// Pipeline wires the planning stages in their required order. Store
// assignment always runs before any product is scored, so candidates
// from unselected stores never influence a comparison.
type Pipeline struct {
	cfg       EngineConfig
	planner   *StorePlanner
	selector  *Selector
	traces    *DecisionTraceBuilder
	assembler *CartAssembler
}

// NewPipeline builds a pipeline from the engine weights and the brand
// registry governing private labels and premium proteins.
func NewPipeline(cfg EngineConfig, brands catalog.BrandRegistry) *Pipeline {
	cfg = cfg.sanitized()
	return &Pipeline{
		cfg:       cfg,
		planner:   NewStorePlanner(cfg, brands),
		selector:  NewSelector(cfg, brands),
		traces:    NewDecisionTraceBuilder(cfg),
		assembler: NewCartAssembler(cfg),
	}
}

// Plan produces a complete cart for the request. Pools map normalized
// ingredient keys to their pre-constraint retrieval results across all
// stores; facts must already hold every row the request can touch.
//
// The only failure mode is an invalid request. Sparse catalogs, recalls
// and empty pools degrade to unavailable cart lines instead.
func (p *Pipeline) Plan(req PlanRequest, pools map[string][]catalog.Candidate, stores []catalog.Store, facts FactsView) (*CartPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	storePlan, assigned := p.planner.Plan(req, pools, stores)

	outcomes := make(map[string]ingredientOutcome, len(req.Ingredients))
	for _, key := range req.UniqueKeys() {
		first, _ := req.FirstRequestFor(key)
		outcome := ingredientOutcome{request: first}

		storeID, routed := assigned[key]
		if !routed {
			// Zero coverage. The filter never ran, but the trace still
			// shows what retrieval found.
			empty := FilterResult{Survivors: []catalog.Candidate{}, Eliminated: []Elimination{}}
			outcome.trace = p.traces.Build(nil, empty, pools[key])
			outcomes[key] = outcome
			continue
		}

		outcome.storeID = storeID
		selection, filtered := p.selector.Select(pools[key], storeID, first.Form, facts.ResidueCategory(key), facts)
		outcome.selection = selection
		outcome.trace = p.traces.Build(selection, filtered, pools[key])
		outcomes[key] = outcome
	}

	return p.assembler.Assemble(req, storePlan, outcomes), nil
}
