package planning

import "github.com/cartwise/v3/internal/domain/catalog"

// maxSaneUnitPrice flags catalog rows whose unit economics are clearly
// data errors, in dollars per canonical unit.
const maxSaneUnitPrice = 1000.0

// hardFormExcludes lists processed forms that can never substitute for
// a requested form. Anything not excluded is handled softly by the
// form-fit score instead.
var hardFormExcludes = map[catalog.Form][]catalog.Form{
	catalog.FormFresh:  {catalog.FormPowder, catalog.FormGranules, catalog.FormDried},
	catalog.FormLeaves: {catalog.FormPowder, catalog.FormGranules},
}

// ConstraintFilter removes candidates that may not be purchased for an
// ingredient once a store has been assigned. Rules run in a fixed
// order and each candidate is eliminated by the first rule it violates,
// so the recorded reason is always the binding constraint.
type ConstraintFilter struct {
	brands catalog.BrandRegistry
}

// NewConstraintFilter builds a filter over the given brand registry.
func NewConstraintFilter(brands catalog.BrandRegistry) *ConstraintFilter {
	return &ConstraintFilter{brands: brands}
}

// Apply partitions the pool for one ingredient into survivors and
// eliminations. An empty survivor list is a legitimate outcome and
// renders as an unavailable cart line, never an error.
func (f *ConstraintFilter) Apply(pool []catalog.Candidate, storeID string, requested catalog.Form, facts FactsView) FilterResult {
	result := FilterResult{
		Survivors:  make([]catalog.Candidate, 0, len(pool)),
		Eliminated: make([]Elimination, 0),
	}
	for _, c := range pool {
		if reason, rejected := f.reject(c, storeID, requested, facts); rejected {
			result.Eliminated = append(result.Eliminated, Elimination{Candidate: c, Reason: reason})
			continue
		}
		result.Survivors = append(result.Survivors, c)
	}
	return result
}

func (f *ConstraintFilter) reject(c catalog.Candidate, storeID string, requested catalog.Form, facts FactsView) (RejectionReason, bool) {
	if c.SourceStoreID != storeID {
		return RejectionStoreEnforcement, true
	}
	if !f.brands.LegalFor(c.Brand, storeID) {
		return RejectionPrivateLabelViolation, true
	}
	if f.recalled(c, facts) {
		return RejectionRecallMatch, true
	}
	if !f.sane(c) {
		return RejectionSanityCheckFailed, true
	}
	if formExcluded(requested, c.Form) {
		return RejectionFormMismatch, true
	}
	return "", false
}

// recalled matches a candidate against active recalls by ingredient and
// by brand. Either match removes the candidate.
func (f *ConstraintFilter) recalled(c catalog.Candidate, facts FactsView) bool {
	if facts.RecallStatus(c.IngredientKey) == RecallStatusRecalled {
		return true
	}
	if c.Brand != "" && facts.RecallStatus(catalog.NormalizeBrand(c.Brand)) == RecallStatusRecalled {
		return true
	}
	return false
}

// sane rejects rows whose pricing data cannot support a comparison.
func (f *ConstraintFilter) sane(c catalog.Candidate) bool {
	if c.Price <= 0 {
		return false
	}
	if !c.HasUnitPrice() {
		return false
	}
	if c.UnitPrice > maxSaneUnitPrice {
		return false
	}
	return true
}

func formExcluded(requested, have catalog.Form) bool {
	if requested == catalog.FormUnknown || have == catalog.FormUnknown {
		return false
	}
	for _, excluded := range hardFormExcludes[requested] {
		if have == excluded {
			return true
		}
	}
	return false
}
