package planning

import (
	"strings"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// IngredientRequest names a single recipe line: what to buy, which
// canonical form the recipe calls for, and how much of it.
type IngredientRequest struct {
	Name     string       `json:"name"`
	Form     catalog.Form `json:"form,omitempty"`
	Quantity string       `json:"quantity,omitempty"`
}

// Key returns the normalized lookup key used against the product index
// and fact stores. Requests for "Tomatoes" and "tomato" share a key.
func (r IngredientRequest) Key() string {
	return catalog.NormalizeKey(r.Name)
}

// PlanRequest is the complete input to the planning pipeline.
type PlanRequest struct {
	Ingredients []IngredientRequest `json:"ingredients"`
	Servings    int                 `json:"servings"`
}

// Validate enforces the only two fatal input conditions. A request that
// passes here always produces a plan, however sparse the catalog is.
func (r PlanRequest) Validate() error {
	if len(r.Ingredients) == 0 {
		return ErrNoIngredients
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return ErrNoIngredients
		}
	}
	if r.Servings <= 0 {
		return ErrInvalidServings
	}
	return nil
}

// UniqueKeys returns the distinct ingredient keys in first-appearance
// order. Duplicate recipe lines collapse onto one retrieval and one
// decision, then fan back out to one cart item per requested line.
func (r PlanRequest) UniqueKeys() []string {
	seen := make(map[string]bool, len(r.Ingredients))
	keys := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		key := ing.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// NamesByKey groups the requested display names under their shared key,
// preserving request order within each group.
func (r PlanRequest) NamesByKey() map[string][]string {
	names := make(map[string][]string, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		key := ing.Key()
		names[key] = append(names[key], ing.Name)
	}
	return names
}

// FirstRequestFor returns the first request line matching the key. The
// pipeline scores against the form of the first mention; later duplicate
// lines reuse the same decision.
func (r PlanRequest) FirstRequestFor(key string) (IngredientRequest, bool) {
	for _, ing := range r.Ingredients {
		if ing.Key() == key {
			return ing, true
		}
	}
	return IngredientRequest{}, false
}
