package planning

// EngineConfig carries every tunable weight and threshold in the
// pipeline. All stages read from one shared config so operators adjust
// behavior in a single place.
type EngineConfig struct {
	// BaseScore is the neutral starting point for every candidate.
	BaseScore float64

	// Pesticide-residue adjustments, keyed by organic flag and the
	// ingredient's residue category.
	EWGOrganicHighResidue      float64
	EWGConventionalHighResidue float64
	EWGOrganicLowResidue       float64

	// Form-fit rewards by match quality against the requested form.
	FormFitExact    float64
	FormFitNear     float64
	FormFitNoInfo   float64
	FormFitMismatch float64

	// Packaging adjustments by recyclability class.
	PackagingGlassOrLoose  float64
	PackagingPaper         float64
	PackagingRecyclable    float64
	PackagingNonRecyclable float64

	// Delivery penalties by estimated lead time in days.
	DeliveryWeekPenalty      float64
	DeliveryMultiWeekPenalty float64

	// UnitValueMax is the reward for the cheapest unit price in a pool.
	// The reward decays linearly to zero at OutlierMultiplier times the
	// cheapest unit price.
	UnitValueMax float64

	// OutlierMultiplier and OutlierPenalty deprioritize candidates whose
	// unit price exceeds the multiplier times the pool median. Outliers
	// stay selectable; the penalty only pushes them down the ranking.
	OutlierMultiplier float64
	OutlierPenalty    float64

	// CheaperSwapDiscount is the minimum fraction below the default
	// choice's price before a swap is worth surfacing.
	CheaperSwapDiscount float64

	// SpecialtyMinIngredients is how many otherwise-uncovered
	// ingredients a specialty store must serve before the plan adds a
	// second stop.
	SpecialtyMinIngredients int

	// PrivateLabelRelianceMax is the fraction of a store's matching
	// candidates that may be its own private label before the store
	// planner discounts its coverage.
	PrivateLabelRelianceMax     float64
	PrivateLabelReliancePenalty float64

	// PremiumProteinBonus rewards stores that stock recognized premium
	// fresh-protein brands during store selection.
	PremiumProteinBonus float64

	// PriceNoteThreshold is the minimum dollar gap between the default
	// choice and its cheaper swap before the trace mentions price.
	PriceNoteThreshold float64

	// MaxDrivers caps how many component deltas a decision trace lists.
	MaxDrivers int
}

// DefaultEngineConfig returns the tuned production weights.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BaseScore:                   50,
		EWGOrganicHighResidue:       18,
		EWGConventionalHighResidue:  -12,
		EWGOrganicLowResidue:        2,
		FormFitExact:                14,
		FormFitNear:                 9,
		FormFitNoInfo:               5,
		FormFitMismatch:             0,
		PackagingGlassOrLoose:       6,
		PackagingPaper:              3,
		PackagingRecyclable:         1,
		PackagingNonRecyclable:      -4,
		DeliveryWeekPenalty:         -5,
		DeliveryMultiWeekPenalty:    -10,
		UnitValueMax:                8,
		OutlierMultiplier:           2.0,
		OutlierPenalty:              -20,
		CheaperSwapDiscount:         0.10,
		SpecialtyMinIngredients:     3,
		PrivateLabelRelianceMax:     0.70,
		PrivateLabelReliancePenalty: 2,
		PremiumProteinBonus:         1.5,
		PriceNoteThreshold:          1.00,
		MaxDrivers:                  3,
	}
}

// sanitized returns a copy with degenerate values nudged back into
// workable ranges so a partially populated config cannot divide by zero
// or emit unbounded traces.
func (c EngineConfig) sanitized() EngineConfig {
	if c.OutlierMultiplier <= 1 {
		c.OutlierMultiplier = DefaultEngineConfig().OutlierMultiplier
	}
	if c.MaxDrivers <= 0 {
		c.MaxDrivers = DefaultEngineConfig().MaxDrivers
	}
	if c.SpecialtyMinIngredients < 1 {
		c.SpecialtyMinIngredients = 1
	}
	if c.CheaperSwapDiscount < 0 {
		c.CheaperSwapDiscount = 0
	}
	return c
}
