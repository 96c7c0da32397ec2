package planning

import (
	"sort"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// PlannedStore is a shopping destination chosen for the trip.
type PlannedStore struct {
	Store catalog.Store `json:"store"`
	Role  StoreRole     `json:"role"`
}

// StoreAssignment lists the requested ingredient names routed to one
// store. Assignments are frozen before any product is scored.
type StoreAssignment struct {
	StoreID         string   `json:"store_id"`
	IngredientNames []string `json:"ingredient_names"`
}

// StorePlan is the trip skeleton: at most one primary store, at most
// one specialty add-on, and the ingredients no known store can supply.
type StorePlan struct {
	Stores      []PlannedStore    `json:"stores"`
	Assignments []StoreAssignment `json:"assignments"`
	Unavailable []string          `json:"unavailable"`
}

// storeStats accumulates coverage evidence for one store across every
// requested ingredient's retrieval pool.
type storeStats struct {
	store    catalog.Store
	covered  map[string]bool
	matches  int
	ownLabel int
	premium  bool
}

// StorePlanner picks the trip's stores before any scoring happens.
// Deciding stores first keeps private-label products from influencing
// cross-store comparisons they could never legally win.
type StorePlanner struct {
	cfg    EngineConfig
	brands catalog.BrandRegistry
}

// NewStorePlanner builds a planner with the given weights and brand
// registry.
func NewStorePlanner(cfg EngineConfig, brands catalog.BrandRegistry) *StorePlanner {
	return &StorePlanner{cfg: cfg.sanitized(), brands: brands}
}

// Plan selects stores and routes every requested ingredient. The
// returned map resolves each ingredient key to its assigned store ID
// for the downstream filter. Ties always break toward the
// lexicographically smaller store ID, keeping plans reproducible.
func (p *StorePlanner) Plan(req PlanRequest, pools map[string][]catalog.Candidate, stores []catalog.Store) (StorePlan, map[string]string) {
	keys := req.UniqueKeys()
	namesByKey := req.NamesByKey()

	stats, orderedIDs := p.collect(keys, pools, stores)

	primaryID, ok := p.pickPrimary(stats, orderedIDs)
	if !ok {
		// Nothing anywhere. The cart will still carry one placeholder
		// line per request.
		unavailable := make([]string, 0, len(keys))
		for _, key := range keys {
			unavailable = append(unavailable, namesByKey[key][0])
		}
		return StorePlan{
			Stores:      []PlannedStore{},
			Assignments: []StoreAssignment{},
			Unavailable: unavailable,
		}, map[string]string{}
	}

	uncovered := make([]string, 0)
	for _, key := range keys {
		if len(pools[key]) == 0 || !coveredAnywhere(stats, key) {
			continue
		}
		if !stats[primaryID].covered[key] {
			uncovered = append(uncovered, key)
		}
	}

	specialtyID, specialtyKeys := p.pickSpecialty(stats, orderedIDs, primaryID, uncovered)

	assigned := make(map[string]string, len(keys))
	unavailable := make([]string, 0)
	for _, key := range keys {
		switch {
		case len(pools[key]) == 0 || !coveredAnywhere(stats, key):
			unavailable = append(unavailable, namesByKey[key][0])
		case stats[primaryID].covered[key]:
			assigned[key] = primaryID
		case specialtyID != "" && specialtyKeys[key]:
			assigned[key] = specialtyID
		default:
			// Below the specialty threshold, or only reachable through a
			// store the plan did not open. Fold into the primary store
			// and let the filter record why nothing survives there.
			assigned[key] = primaryID
		}
	}

	plan := StorePlan{
		Stores:      []PlannedStore{{Store: stats[primaryID].store, Role: StoreRolePrimary}},
		Unavailable: unavailable,
	}
	if specialtyID != "" {
		plan.Stores = append(plan.Stores, PlannedStore{Store: stats[specialtyID].store, Role: StoreRoleSpecialty})
	}
	plan.Assignments = buildAssignments(req, assigned, primaryID, specialtyID)
	return plan, assigned
}

// collect tallies per-store coverage over the pre-constraint pools.
// Candidates referencing unknown store IDs contribute nothing.
func (p *StorePlanner) collect(keys []string, pools map[string][]catalog.Candidate, stores []catalog.Store) (map[string]*storeStats, []string) {
	stats := make(map[string]*storeStats, len(stores))
	orderedIDs := make([]string, 0, len(stores))
	for _, s := range stores {
		stats[s.ID] = &storeStats{store: s, covered: make(map[string]bool)}
		orderedIDs = append(orderedIDs, s.ID)
	}
	sort.Strings(orderedIDs)

	for _, key := range keys {
		for _, c := range pools[key] {
			st, known := stats[c.SourceStoreID]
			if !known {
				continue
			}
			st.covered[key] = true
			st.matches++
			if exclusive, isPL := p.brands.ExclusiveStore(c.Brand); isPL && exclusive == st.store.ID {
				st.ownLabel++
			}
			if p.brands.IsPremiumProtein(c.Brand) {
				st.premium = true
			}
		}
	}
	return stats, orderedIDs
}

// score ranks a store's fitness as the primary destination: raw
// ingredient coverage, a nudge for premium fresh-protein brands, and a
// markdown for assortments dominated by the store's own label.
func (p *StorePlanner) score(st *storeStats) float64 {
	score := float64(len(st.covered))
	if st.premium {
		score += p.cfg.PremiumProteinBonus
	}
	if st.matches > 0 {
		reliance := float64(st.ownLabel) / float64(st.matches)
		if reliance > p.cfg.PrivateLabelRelianceMax {
			score -= p.cfg.PrivateLabelReliancePenalty
		}
	}
	return score
}

// pickPrimary prefers a general-purpose store as the trip's anchor.
// Specialty stores only anchor a plan when no general store stocks
// anything at all.
func (p *StorePlanner) pickPrimary(stats map[string]*storeStats, orderedIDs []string) (string, bool) {
	general := func(st *storeStats) bool { return st.store.Kind == catalog.StoreKindGeneral }
	if id, ok := p.bestStore(stats, orderedIDs, general); ok {
		return id, true
	}
	any := func(*storeStats) bool { return true }
	return p.bestStore(stats, orderedIDs, any)
}

func (p *StorePlanner) bestStore(stats map[string]*storeStats, orderedIDs []string, eligible func(*storeStats) bool) (string, bool) {
	bestID := ""
	bestScore := 0.0
	for _, id := range orderedIDs {
		st := stats[id]
		if !eligible(st) || len(st.covered) == 0 {
			continue
		}
		if score := p.score(st); bestID == "" || score > bestScore {
			bestID = id
			bestScore = score
		}
	}
	return bestID, bestID != ""
}

// pickSpecialty opens a second stop only when a single specialty store
// fills enough of the gap to justify the extra trip.
func (p *StorePlanner) pickSpecialty(stats map[string]*storeStats, orderedIDs []string, primaryID string, uncovered []string) (string, map[string]bool) {
	if len(uncovered) == 0 {
		return "", nil
	}
	bestID := ""
	bestCount := 0
	for _, id := range orderedIDs {
		st := stats[id]
		if id == primaryID || st.store.Kind != catalog.StoreKindSpecialty {
			continue
		}
		count := 0
		for _, key := range uncovered {
			if st.covered[key] {
				count++
			}
		}
		if count > bestCount {
			bestID = id
			bestCount = count
		}
	}
	if bestCount < p.cfg.SpecialtyMinIngredients {
		return "", nil
	}
	covered := make(map[string]bool, bestCount)
	for _, key := range uncovered {
		if stats[bestID].covered[key] {
			covered[key] = true
		}
	}
	return bestID, covered
}

func coveredAnywhere(stats map[string]*storeStats, key string) bool {
	for _, st := range stats {
		if st.covered[key] {
			return true
		}
	}
	return false
}

// buildAssignments renders the frozen routing as per-store name lists,
// primary store first, preserving request order within each store.
func buildAssignments(req PlanRequest, assigned map[string]string, primaryID, specialtyID string) []StoreAssignment {
	byStore := map[string][]string{}
	seen := map[string]bool{}
	for _, ing := range req.Ingredients {
		storeID, ok := assigned[ing.Key()]
		if !ok {
			continue
		}
		dedupe := storeID + "\x00" + ing.Name
		if seen[dedupe] {
			continue
		}
		seen[dedupe] = true
		byStore[storeID] = append(byStore[storeID], ing.Name)
	}

	assignments := make([]StoreAssignment, 0, 2)
	for _, storeID := range []string{primaryID, specialtyID} {
		if storeID == "" {
			continue
		}
		if names := byStore[storeID]; len(names) > 0 {
			assignments = append(assignments, StoreAssignment{StoreID: storeID, IngredientNames: names})
		}
	}
	return assignments
}
