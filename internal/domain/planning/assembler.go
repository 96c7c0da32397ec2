package planning

import (
	"math"
	"sort"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// chipLimit caps how many reasons a single chip row displays.
const chipLimit = 3

// ProductChoice is a concrete purchasable line: one product at one
// store with its comparison economics attached.
type ProductChoice struct {
	ProductID     string       `json:"product_id"`
	StoreID       string       `json:"store_id"`
	Brand         string       `json:"brand,omitempty"`
	Title         string       `json:"title"`
	Price         float64      `json:"price"`
	UnitPrice     float64      `json:"unit_price,omitempty"`
	UnitPriceUnit catalog.Unit `json:"unit_price_unit,omitempty"`
	Organic       bool         `json:"organic"`
	Form          catalog.Form `json:"form,omitempty"`
	Quantity      int          `json:"quantity"`
	Score         float64      `json:"score"`
}

// Chips are the short labels rendered on a cart line: why this product
// won, and what taking it costs.
type Chips struct {
	WhyPick   []string `json:"why_pick"`
	Tradeoffs []string `json:"tradeoffs"`
}

// CartItem is one requested ingredient resolved to a decision. Every
// requested line produces exactly one item; unavailable ingredients
// keep their slot as a placeholder with quantity zero.
type CartItem struct {
	Ingredient  IngredientRequest `json:"ingredient"`
	Status      ItemStatus        `json:"status"`
	StoreID     string            `json:"store_id,omitempty"`
	Default     *ProductChoice    `json:"default,omitempty"`
	CheaperSwap *ProductChoice    `json:"cheaper_swap,omitempty"`
	Chips       Chips             `json:"chips"`
	Trace       DecisionTrace     `json:"trace"`
}

// StoreTotal is one store's share of the cart under both purchase
// strategies.
type StoreTotal struct {
	StoreID string  `json:"store_id"`
	Ethical float64 `json:"ethical"`
	Cheaper float64 `json:"cheaper"`
}

// CartTotals compares the all-defaults cart against the take-every-swap
// cart. Amounts are rounded to cents.
type CartTotals struct {
	Ethical  float64      `json:"ethical"`
	Cheaper  float64      `json:"cheaper"`
	Savings  float64      `json:"savings"`
	PerStore []StoreTotal `json:"per_store"`
}

// CartPlan is the complete planning output. It carries no identifiers
// or timestamps of its own, so the same request against the same
// catalog yields a byte-identical plan.
type CartPlan struct {
	Servings    int                 `json:"servings"`
	Ingredients []IngredientRequest `json:"ingredients"`
	StorePlan   StorePlan           `json:"store_plan"`
	Items       []CartItem          `json:"items"`
	Totals      CartTotals          `json:"totals"`
}

// driverChips translate score component tags into shopper-facing copy.
var driverChips = map[string]string{
	RuleEWG:       "Organic advantage on residue-prone produce",
	RuleFormFit:   "Closer match to the requested form",
	RulePackaging: "Lower-waste packaging",
	RuleDelivery:  "Faster delivery",
	RuleUnitValue: "Better unit value",
	RuleOutlier:   "Avoids an overpriced outlier",
}

// CartAssembler turns per-ingredient outcomes into the final cart. The
// assembler never drops a line: the cart always has exactly one item
// per requested ingredient, available or not.
type CartAssembler struct {
	cfg EngineConfig
}

// NewCartAssembler builds an assembler with the given thresholds.
func NewCartAssembler(cfg EngineConfig) *CartAssembler {
	return &CartAssembler{cfg: cfg.sanitized()}
}

// Assemble builds the cart plan from the frozen store plan and the
// per-ingredient outcomes. Ingredients whose pools emptied out during
// filtering are appended to the store plan's unavailable list here.
func (a *CartAssembler) Assemble(req PlanRequest, plan StorePlan, outcomes map[string]ingredientOutcome) *CartPlan {
	unavailable := append([]string(nil), plan.Unavailable...)
	seenUnavailable := make(map[string]bool, len(unavailable))
	for _, name := range unavailable {
		seenUnavailable[name] = true
	}

	items := make([]CartItem, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		outcome := outcomes[ing.Key()]
		if outcome.selection == nil {
			if !seenUnavailable[ing.Name] {
				seenUnavailable[ing.Name] = true
				unavailable = append(unavailable, ing.Name)
			}
			items = append(items, a.unavailableItem(ing, outcome))
			continue
		}
		items = append(items, a.availableItem(ing, outcome))
	}

	plan.Unavailable = unavailable
	return &CartPlan{
		Servings:    req.Servings,
		Ingredients: req.Ingredients,
		StorePlan:   plan,
		Items:       items,
		Totals:      a.totals(items),
	}
}

func (a *CartAssembler) availableItem(ing IngredientRequest, outcome ingredientOutcome) CartItem {
	choice := productChoice(outcome.selection.Default, 1)
	item := CartItem{
		Ingredient: ing,
		Status:     ItemStatusAvailable,
		StoreID:    choice.StoreID,
		Default:    &choice,
		Chips: Chips{
			WhyPick:   a.whyPick(outcome),
			Tradeoffs: append([]string{}, outcome.trace.Tradeoffs...),
		},
		Trace: outcome.trace,
	}
	if outcome.selection.Swap != nil {
		swap := productChoice(*outcome.selection.Swap, 1)
		item.CheaperSwap = &swap
	}
	return item
}

func (a *CartAssembler) unavailableItem(ing IngredientRequest, outcome ingredientOutcome) CartItem {
	// The slot keeps a zero-quantity placeholder so consumers can render
	// the line without a nil check.
	return CartItem{
		Ingredient: ing,
		Status:     ItemStatusUnavailable,
		Default:    &ProductChoice{Title: ing.Name, Quantity: 0},
		Chips: Chips{
			WhyPick:   []string{},
			Tradeoffs: []string{"Unavailable"},
		},
		Trace: outcome.trace,
	}
}

// whyPick prefers the trace's positive drivers. An unopposed winner has
// no deltas to show, so the chips fall back to the winner's own strong
// components.
func (a *CartAssembler) whyPick(outcome ingredientOutcome) []string {
	chips := make([]string, 0, chipLimit)
	for _, d := range outcome.trace.Drivers {
		if d.Delta <= 0 {
			continue
		}
		chips = append(chips, driverChips[d.Rule])
		if len(chips) == chipLimit {
			return chips
		}
	}
	if len(chips) > 0 {
		return chips
	}

	breakdown := outcome.selection.Default.Breakdown
	if breakdown.EWG > 0 {
		chips = append(chips, driverChips[RuleEWG])
	}
	if breakdown.FormFit >= a.cfg.FormFitExact && a.cfg.FormFitExact > 0 {
		chips = append(chips, "Matches the requested form")
	}
	if breakdown.Packaging > 0 {
		chips = append(chips, driverChips[RulePackaging])
	}
	// Unit value is relative to the pool, so it only means something
	// when the winner actually had competition.
	if len(outcome.selection.Ranked) > 1 && breakdown.UnitValue > a.cfg.UnitValueMax/2 {
		chips = append(chips, driverChips[RuleUnitValue])
	}
	if len(chips) > chipLimit {
		chips = chips[:chipLimit]
	}
	if len(chips) == 0 {
		if len(outcome.selection.Ranked) == 1 {
			return []string{"Only eligible option"}
		}
		return []string{"Best available option"}
	}
	return chips
}

// totals sums both purchase strategies per line and per store.
func (a *CartAssembler) totals(items []CartItem) CartTotals {
	perStore := map[string]*StoreTotal{}
	var ethical, cheaper float64
	for _, item := range items {
		if item.Status != ItemStatusAvailable || item.Default == nil {
			continue
		}
		linePrice := item.Default.Price
		swapPrice := linePrice
		if item.CheaperSwap != nil {
			swapPrice = item.CheaperSwap.Price
		}
		ethical += linePrice
		cheaper += swapPrice

		st, ok := perStore[item.StoreID]
		if !ok {
			st = &StoreTotal{StoreID: item.StoreID}
			perStore[item.StoreID] = st
		}
		st.Ethical += linePrice
		st.Cheaper += swapPrice
	}

	storeIDs := make([]string, 0, len(perStore))
	for id := range perStore {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	storeTotals := make([]StoreTotal, 0, len(storeIDs))
	for _, id := range storeIDs {
		st := perStore[id]
		storeTotals = append(storeTotals, StoreTotal{
			StoreID: id,
			Ethical: roundCents(st.Ethical),
			Cheaper: roundCents(st.Cheaper),
		})
	}

	return CartTotals{
		Ethical:  roundCents(ethical),
		Cheaper:  roundCents(cheaper),
		Savings:  roundCents(ethical - cheaper),
		PerStore: storeTotals,
	}
}

func productChoice(sc ScoredCandidate, quantity int) ProductChoice {
	c := sc.Candidate
	return ProductChoice{
		ProductID:     c.ProductID,
		StoreID:       c.SourceStoreID,
		Brand:         c.Brand,
		Title:         c.Title,
		Price:         c.Price,
		UnitPrice:     c.UnitPrice,
		UnitPriceUnit: c.UnitPriceUnit,
		Organic:       c.Organic,
		Form:          c.Form,
		Quantity:      quantity,
		Score:         sc.Total,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
