package planning

import "errors"

// Domain errors for planning operations.
//
// The engine refuses to plan in exactly two cases; everything else that
// goes wrong with a candidate is recorded as trace data, never raised.

var (
	ErrNoIngredients   = errors.New("planning request must include at least one ingredient")
	ErrInvalidServings = errors.New("servings must be greater than 0")
)
