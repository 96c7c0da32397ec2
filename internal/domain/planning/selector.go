package planning

import (
	"sort"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// Selection is the outcome of ranking one ingredient's survivors. The
// default is the ethically ranked winner; Swap is the highest-ranked
// materially cheaper alternative, when one exists.
type Selection struct {
	Default ScoredCandidate   `json:"default"`
	Swap    *ScoredCandidate  `json:"swap,omitempty"`
	Ranked  []ScoredCandidate `json:"ranked"`
}

// Selector turns a retrieval pool into a ranked selection for an
// ingredient that has already been routed to a store.
type Selector struct {
	cfg    EngineConfig
	filter *ConstraintFilter
	scorer *ComponentScorer
}

// NewSelector wires the filter and scorer behind one entry point.
func NewSelector(cfg EngineConfig, brands catalog.BrandRegistry) *Selector {
	cfg = cfg.sanitized()
	return &Selector{
		cfg:    cfg,
		filter: NewConstraintFilter(brands),
		scorer: NewComponentScorer(cfg),
	}
}

// Select filters the pool down to the assigned store, scores the
// survivors, and ranks them. A nil Selection means nothing survived;
// the FilterResult still carries the full elimination record for the
// trace.
func (s *Selector) Select(pool []catalog.Candidate, storeID string, requested catalog.Form, residue ResidueCategory, facts FactsView) (*Selection, FilterResult) {
	result := s.filter.Apply(pool, storeID, requested, facts)
	if len(result.Survivors) == 0 {
		return nil, result
	}

	ranked := s.scorer.ScorePool(result.Survivors, requested, residue)
	sortRanked(ranked)

	sel := &Selection{Default: ranked[0], Ranked: ranked}
	if swap := s.cheaperSwap(ranked); swap != nil {
		sel.Swap = swap
	}
	return sel, result
}

// cheaperSwap returns the highest-ranked alternative priced at least
// CheaperSwapDiscount below the default. Near-identical prices are not
// worth a second decision, so close calls surface nothing.
func (s *Selector) cheaperSwap(ranked []ScoredCandidate) *ScoredCandidate {
	if len(ranked) < 2 {
		return nil
	}
	ceiling := ranked[0].Candidate.Price * (1 - s.cfg.CheaperSwapDiscount)
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Candidate.Price <= ceiling {
			swap := ranked[i]
			return &swap
		}
	}
	return nil
}

// sortRanked orders candidates best-first: total score, then organic,
// then form fit, then price. Product ID is the final word so equal
// products always rank identically across runs.
func sortRanked(ranked []ScoredCandidate) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Candidate.Organic != b.Candidate.Organic {
			return a.Candidate.Organic
		}
		if a.Breakdown.FormFit != b.Breakdown.FormFit {
			return a.Breakdown.FormFit > b.Breakdown.FormFit
		}
		if a.Candidate.Price != b.Candidate.Price {
			return a.Candidate.Price < b.Candidate.Price
		}
		return a.Candidate.ProductID < b.Candidate.ProductID
	})
}
