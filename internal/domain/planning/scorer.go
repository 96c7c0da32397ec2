package planning

import (
	"math"
	"sort"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// ScoreBreakdown itemizes every component that contributed to a
// candidate's total. Traces diff these breakdowns to explain decisions.
type ScoreBreakdown struct {
	Base      float64 `json:"base"`
	EWG       float64 `json:"ewg"`
	FormFit   float64 `json:"form_fit"`
	Packaging float64 `json:"packaging"`
	Delivery  float64 `json:"delivery"`
	UnitValue float64 `json:"unit_value"`
	Outlier   float64 `json:"outlier"`
}

func (b ScoreBreakdown) sum() float64 {
	return b.Base + b.EWG + b.FormFit + b.Packaging + b.Delivery + b.UnitValue + b.Outlier
}

// ScoredCandidate pairs a surviving candidate with its score. Total is
// the clamped sum of the breakdown components.
type ScoredCandidate struct {
	Candidate    catalog.Candidate `json:"candidate"`
	Breakdown    ScoreBreakdown    `json:"breakdown"`
	Total        float64           `json:"total"`
	PriceOutlier bool              `json:"price_outlier,omitempty"`
}

// nearForms maps each form to the forms close enough to earn the
// near-match reward instead of the no-information fallback.
var nearForms = map[catalog.Form][]catalog.Form{
	catalog.FormFresh:  {catalog.FormWhole},
	catalog.FormWhole:  {catalog.FormFresh},
	catalog.FormSeeds:  {catalog.FormPods},
	catalog.FormPods:   {catalog.FormSeeds},
	catalog.FormLeaves: {catalog.FormFresh},
}

// ComponentScorer assigns each surviving candidate an additive score.
// Unit-value and outlier components are relative to the pool being
// scored, so a candidate's score is only meaningful within its pool.
type ComponentScorer struct {
	cfg EngineConfig
}

// NewComponentScorer builds a scorer with the given weights.
func NewComponentScorer(cfg EngineConfig) *ComponentScorer {
	return &ComponentScorer{cfg: cfg.sanitized()}
}

// ScorePool scores every survivor against the pool's own price
// statistics. The returned slice preserves input order; ranking happens
// in the selector.
func (s *ComponentScorer) ScorePool(pool []catalog.Candidate, requested catalog.Form, residue ResidueCategory) []ScoredCandidate {
	if len(pool) == 0 {
		return nil
	}
	cheapest, median := poolPriceStats(pool)

	scored := make([]ScoredCandidate, 0, len(pool))
	for _, c := range pool {
		breakdown := ScoreBreakdown{
			Base:      s.cfg.BaseScore,
			EWG:       s.ewg(c, residue),
			FormFit:   s.formFit(requested, c.Form),
			Packaging: s.packaging(c.Packaging),
			Delivery:  s.delivery(c.DeliveryDays),
			UnitValue: s.unitValue(c, cheapest),
		}
		outlier := median > 0 && c.UnitPrice > s.cfg.OutlierMultiplier*median
		if outlier {
			breakdown.Outlier = s.cfg.OutlierPenalty
		}
		scored = append(scored, ScoredCandidate{
			Candidate:    c,
			Breakdown:    breakdown,
			Total:        clampScore(breakdown.sum()),
			PriceOutlier: outlier,
		})
	}
	return scored
}

func (s *ComponentScorer) ewg(c catalog.Candidate, residue ResidueCategory) float64 {
	switch residue {
	case ResidueCategoryHigh:
		if c.Organic {
			return s.cfg.EWGOrganicHighResidue
		}
		return s.cfg.EWGConventionalHighResidue
	case ResidueCategoryLow:
		if c.Organic {
			return s.cfg.EWGOrganicLowResidue
		}
	}
	return 0
}

func (s *ComponentScorer) formFit(requested, have catalog.Form) float64 {
	if requested == catalog.FormUnknown || have == catalog.FormUnknown {
		return s.cfg.FormFitNoInfo
	}
	if requested == have {
		return s.cfg.FormFitExact
	}
	for _, near := range nearForms[requested] {
		if have == near {
			return s.cfg.FormFitNear
		}
	}
	return s.cfg.FormFitMismatch
}

func (s *ComponentScorer) packaging(p catalog.Packaging) float64 {
	switch p {
	case catalog.PackagingGlass, catalog.PackagingLoose:
		return s.cfg.PackagingGlassOrLoose
	case catalog.PackagingPaper:
		return s.cfg.PackagingPaper
	case catalog.PackagingRecyclablePlastic:
		return s.cfg.PackagingRecyclable
	case catalog.PackagingNonRecyclable:
		return s.cfg.PackagingNonRecyclable
	}
	return 0
}

func (s *ComponentScorer) delivery(days int) float64 {
	switch {
	case days < 7:
		return 0
	case days < 14:
		return s.cfg.DeliveryWeekPenalty
	default:
		return s.cfg.DeliveryMultiWeekPenalty
	}
}

// unitValue rewards cheap unit prices on a linear ramp: the pool's
// cheapest candidate earns the full reward, decaying to zero once the
// unit price reaches OutlierMultiplier times the cheapest.
func (s *ComponentScorer) unitValue(c catalog.Candidate, cheapest float64) float64 {
	if cheapest <= 0 || !c.HasUnitPrice() {
		return 0
	}
	ratio := c.UnitPrice / cheapest
	span := s.cfg.OutlierMultiplier - 1
	value := s.cfg.UnitValueMax * (1 - (ratio-1)/span)
	if value < 0 {
		return 0
	}
	if value > s.cfg.UnitValueMax {
		return s.cfg.UnitValueMax
	}
	return value
}

// poolPriceStats returns the cheapest and median unit price across the
// pool, considering only candidates with a comparable unit price.
func poolPriceStats(pool []catalog.Candidate) (cheapest, median float64) {
	prices := make([]float64, 0, len(pool))
	for _, c := range pool {
		if c.HasUnitPrice() {
			prices = append(prices, c.UnitPrice)
		}
	}
	if len(prices) == 0 {
		return 0, 0
	}
	sort.Float64s(prices)
	cheapest = prices[0]
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		median = prices[mid]
	} else {
		median = (prices[mid-1] + prices[mid]) / 2
	}
	return cheapest, median
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
