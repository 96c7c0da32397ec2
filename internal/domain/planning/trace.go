package planning

import (
	"fmt"
	"math"
	"sort"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// Score component tags shared by drivers and chips. The tags mirror the
// ScoreBreakdown field names so a trace can be joined back to the raw
// numbers.
const (
	RuleEWG       = "ewg"
	RuleFormFit   = "form_fit"
	RulePackaging = "packaging"
	RuleDelivery  = "delivery"
	RuleUnitValue = "unit_value"
	RuleOutlier   = "outlier"
)

// Driver is one score component that separated the winner from the
// field, with the signed point difference it contributed.
type Driver struct {
	Rule  string  `json:"rule"`
	Delta float64 `json:"delta"`
}

// PoolSummary counts one store's candidates before and after the
// constraint filter ran for a single ingredient.
type PoolSummary struct {
	StoreID    string `json:"store_id"`
	Retrieved  int    `json:"retrieved"`
	Considered int    `json:"considered"`
}

// EliminationNote is the trace-sized record of a filtered candidate.
type EliminationNote struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Reason    RejectionReason `json:"reason"`
}

// DecisionTrace explains one ingredient's outcome: what pushed the
// winner ahead, what the shopper gives up by taking it, how deep each
// store's pool was, and every candidate that was ruled out.
type DecisionTrace struct {
	Drivers    []Driver          `json:"drivers"`
	Tradeoffs  []string          `json:"tradeoffs"`
	Pools      []PoolSummary     `json:"pools"`
	Eliminated []EliminationNote `json:"eliminated"`
}

// DecisionTraceBuilder derives traces from selection outcomes. The
// builder never recomputes scores; it only diffs and summarizes what
// the pipeline already decided.
type DecisionTraceBuilder struct {
	cfg EngineConfig
}

// NewDecisionTraceBuilder builds a trace builder with the given
// thresholds.
func NewDecisionTraceBuilder(cfg EngineConfig) *DecisionTraceBuilder {
	return &DecisionTraceBuilder{cfg: cfg.sanitized()}
}

// Build assembles the trace for one ingredient. A nil selection traces
// an unavailable outcome; the elimination record then carries the whole
// explanation.
func (b *DecisionTraceBuilder) Build(sel *Selection, filtered FilterResult, retrieved []catalog.Candidate) DecisionTrace {
	trace := DecisionTrace{
		Drivers:    []Driver{},
		Tradeoffs:  []string{},
		Pools:      poolSummaries(retrieved, filtered.Survivors),
		Eliminated: eliminationNotes(filtered.Eliminated),
	}
	if sel == nil {
		if len(retrieved) == 0 {
			trace.Tradeoffs = append(trace.Tradeoffs, "No products matched this ingredient")
		} else {
			trace.Tradeoffs = append(trace.Tradeoffs, "No eligible products at the planned stores")
		}
		return trace
	}
	trace.Drivers = b.drivers(sel)
	trace.Tradeoffs = b.tradeoffs(sel)
	return trace
}

// drivers diffs the winner against the runner-up, or against the pool's
// per-component median when the winner ran unopposed. Only components
// that actually moved appear, largest movement first.
func (b *DecisionTraceBuilder) drivers(sel *Selection) []Driver {
	winner := sel.Default.Breakdown
	var baseline ScoreBreakdown
	if len(sel.Ranked) > 1 {
		baseline = sel.Ranked[1].Breakdown
	} else {
		baseline = medianBreakdown(sel.Ranked)
	}

	deltas := []Driver{
		{Rule: RuleEWG, Delta: winner.EWG - baseline.EWG},
		{Rule: RuleFormFit, Delta: winner.FormFit - baseline.FormFit},
		{Rule: RulePackaging, Delta: winner.Packaging - baseline.Packaging},
		{Rule: RuleDelivery, Delta: winner.Delivery - baseline.Delivery},
		{Rule: RuleUnitValue, Delta: winner.UnitValue - baseline.UnitValue},
		{Rule: RuleOutlier, Delta: winner.Outlier - baseline.Outlier},
	}

	moved := make([]Driver, 0, len(deltas))
	for _, d := range deltas {
		if d.Delta != 0 {
			moved = append(moved, d)
		}
	}
	sort.SliceStable(moved, func(i, j int) bool {
		return math.Abs(moved[i].Delta) > math.Abs(moved[j].Delta)
	})
	if len(moved) > b.cfg.MaxDrivers {
		moved = moved[:b.cfg.MaxDrivers]
	}
	return moved
}

// tradeoffs names the winner's negative components in plain language,
// plus a price note when skipping the cheaper swap costs real money.
func (b *DecisionTraceBuilder) tradeoffs(sel *Selection) []string {
	breakdown := sel.Default.Breakdown
	notes := make([]string, 0, 4)
	if breakdown.EWG < 0 {
		notes = append(notes, "Conventional produce in a high-residue category")
	}
	if breakdown.Packaging < 0 {
		notes = append(notes, "Packaging is not recyclable")
	}
	if breakdown.Delivery < 0 {
		if breakdown.Delivery <= b.cfg.DeliveryMultiWeekPenalty {
			notes = append(notes, "Specialty shipping takes two weeks or more")
		} else {
			notes = append(notes, "Ships in about a week")
		}
	}
	if breakdown.Outlier < 0 {
		notes = append(notes, "Unit price is well above the typical option")
	}
	if sel.Swap != nil {
		diff := sel.Default.Candidate.Price - sel.Swap.Candidate.Price
		if diff >= b.cfg.PriceNoteThreshold {
			notes = append(notes, fmt.Sprintf("Costs $%.2f more than the cheaper swap", diff))
		}
	}
	return notes
}

// medianBreakdown computes the per-component median across the ranked
// pool, giving an unopposed winner something honest to diff against.
func medianBreakdown(ranked []ScoredCandidate) ScoreBreakdown {
	if len(ranked) == 0 {
		return ScoreBreakdown{}
	}
	med := func(get func(ScoreBreakdown) float64) float64 {
		vals := make([]float64, 0, len(ranked))
		for _, r := range ranked {
			vals = append(vals, get(r.Breakdown))
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			return vals[mid]
		}
		return (vals[mid-1] + vals[mid]) / 2
	}
	return ScoreBreakdown{
		Base:      med(func(b ScoreBreakdown) float64 { return b.Base }),
		EWG:       med(func(b ScoreBreakdown) float64 { return b.EWG }),
		FormFit:   med(func(b ScoreBreakdown) float64 { return b.FormFit }),
		Packaging: med(func(b ScoreBreakdown) float64 { return b.Packaging }),
		Delivery:  med(func(b ScoreBreakdown) float64 { return b.Delivery }),
		UnitValue: med(func(b ScoreBreakdown) float64 { return b.UnitValue }),
		Outlier:   med(func(b ScoreBreakdown) float64 { return b.Outlier }),
	}
}

// poolSummaries reports retrieval depth per store. Considered counts
// post-filter survivors, which all sit at the assigned store.
func poolSummaries(retrieved []catalog.Candidate, survivors []catalog.Candidate) []PoolSummary {
	retrievedByStore := map[string]int{}
	for _, c := range retrieved {
		retrievedByStore[c.SourceStoreID]++
	}
	consideredByStore := map[string]int{}
	for _, c := range survivors {
		consideredByStore[c.SourceStoreID]++
	}

	storeIDs := make([]string, 0, len(retrievedByStore))
	for id := range retrievedByStore {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	summaries := make([]PoolSummary, 0, len(storeIDs))
	for _, id := range storeIDs {
		summaries = append(summaries, PoolSummary{
			StoreID:    id,
			Retrieved:  retrievedByStore[id],
			Considered: consideredByStore[id],
		})
	}
	return summaries
}

func eliminationNotes(eliminated []Elimination) []EliminationNote {
	notes := make([]EliminationNote, 0, len(eliminated))
	for _, e := range eliminated {
		notes = append(notes, EliminationNote{
			ProductID: e.Candidate.ProductID,
			Title:     e.Candidate.Title,
			Reason:    e.Reason,
		})
	}
	return notes
}
