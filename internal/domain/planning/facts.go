package planning

import "github.com/cartwise/v3/internal/domain/catalog"

// RecallStatus reports whether an ingredient or brand carries an active
// safety recall.
type RecallStatus string

const (
	RecallStatusSafe     RecallStatus = "safe"
	RecallStatusRecalled RecallStatus = "recalled"
	RecallStatusUnknown  RecallStatus = "unknown"
)

// ResidueCategory buckets produce by pesticide-residue guidance. High
// residue produce rewards organic candidates and penalizes conventional
// ones; low residue produce keeps the organic premium token-sized.
type ResidueCategory string

const (
	ResidueCategoryHigh    ResidueCategory = "high_residue"
	ResidueCategoryLow     ResidueCategory = "low_residue"
	ResidueCategoryMiddle  ResidueCategory = "middle"
	ResidueCategoryUnknown ResidueCategory = "unknown"
)

// ParseRecallStatus maps a wire value onto a recall status.
func ParseRecallStatus(raw string) (RecallStatus, bool) {
	switch RecallStatus(raw) {
	case RecallStatusSafe, RecallStatusRecalled, RecallStatusUnknown:
		return RecallStatus(raw), true
	}
	return RecallStatusUnknown, false
}

// ParseResidueCategory maps a wire value onto a residue category.
func ParseResidueCategory(raw string) (ResidueCategory, bool) {
	switch ResidueCategory(raw) {
	case ResidueCategoryHigh, ResidueCategoryLow, ResidueCategoryMiddle, ResidueCategoryUnknown:
		return ResidueCategory(raw), true
	}
	return ResidueCategoryUnknown, false
}

// FactsView is the read-only fact surface the pipeline consults while
// filtering and scoring. Implementations must answer from memory; all
// I/O happens before the pipeline runs.
type FactsView interface {
	// RecallStatus reports the recall state for a normalized ingredient
	// key or brand key. Unknown subjects return RecallStatusUnknown.
	RecallStatus(key string) RecallStatus

	// ResidueCategory reports the residue bucket for a normalized
	// ingredient key. Unknown ingredients return ResidueCategoryUnknown.
	ResidueCategory(key string) ResidueCategory
}

// StaticFacts is an immutable in-memory FactsView. The application layer
// prefetches the rows relevant to a request and hands the snapshot to
// the pipeline, keeping the engine free of context plumbing.
type StaticFacts struct {
	recalls  map[string]RecallStatus
	residues map[string]ResidueCategory
}

// NewStaticFacts builds a snapshot from recall and residue rows. Keys
// are normalized on the way in so callers can pass raw names.
func NewStaticFacts(recalls map[string]RecallStatus, residues map[string]ResidueCategory) StaticFacts {
	f := StaticFacts{
		recalls:  make(map[string]RecallStatus, len(recalls)),
		residues: make(map[string]ResidueCategory, len(residues)),
	}
	for key, status := range recalls {
		f.recalls[catalog.NormalizeKey(key)] = status
	}
	for key, category := range residues {
		f.residues[catalog.NormalizeKey(key)] = category
	}
	return f
}

func (f StaticFacts) RecallStatus(key string) RecallStatus {
	if status, ok := f.recalls[catalog.NormalizeKey(key)]; ok {
		return status
	}
	return RecallStatusUnknown
}

func (f StaticFacts) ResidueCategory(key string) ResidueCategory {
	if category, ok := f.residues[catalog.NormalizeKey(key)]; ok {
		return category
	}
	return ResidueCategoryUnknown
}
